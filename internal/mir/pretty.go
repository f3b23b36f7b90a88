package mir

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a module in a stable textual form. The output is for tests
// and debugging, not a parseable format.
func Print(m *Module) string {
	var b strings.Builder
	p := printer{b: &b}

	for _, s := range m.Structs {
		fmt.Fprintf(&b, "struct %s(", s.Name)
		for i, f := range s.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", f.Name, f.Type)
		}
		b.WriteString(")\n")
	}
	for _, e := range m.Enums {
		fmt.Fprintf(&b, "enum %s(", e.Name)
		for i, v := range e.Variants {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s/%d", v.Name, len(v.Types))
		}
		b.WriteString(")\n")
	}

	for _, fn := range m.Functions {
		p.function(fn)
	}
	if m.Main != nil {
		p.function(m.Main)
	}
	return b.String()
}

// PrintExpr renders a single expression.
func PrintExpr(e Expr) string {
	var b strings.Builder
	p := printer{b: &b}
	p.expr(e)
	return b.String()
}

type printer struct {
	b      *strings.Builder
	indent int
}

func (p *printer) line(format string, args ...interface{}) {
	p.b.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) function(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = param.Name + ": " + param.Type.String()
	}
	p.line("fn %s(%s) -> %s {", fn.Name, strings.Join(params, ", "), fn.Return)
	p.indent++
	p.blockContents(fn.Body)
	p.indent--
	p.line("}")
}

func (p *printer) blockContents(b *Block) {
	for _, stmt := range b.Stmts {
		p.stmt(stmt)
	}
	if b.Tail != nil {
		p.line("-> %s", PrintExpr(b.Tail))
	}
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *LocalDecl:
		p.line("decl %s: %s = %s", s.Name, s.Typ, PrintExpr(s.Value))
	case *LocalSet:
		p.line("set %s = %s", s.Name, PrintExpr(s.Value))
	case *SetIndex:
		p.line("setidx %s[%s] = %s", PrintExpr(s.Target), PrintExpr(s.Index), PrintExpr(s.Value))
	case *SetField:
		p.line("setfld %s.%s = %s", PrintExpr(s.Target), s.Field, PrintExpr(s.Value))
	case *ExprStmt:
		p.line("%s", PrintExpr(s.Expr))
	case *Loop:
		cond := "true"
		if s.Cond != nil {
			cond = PrintExpr(s.Cond)
		}
		p.line("loop %s {", cond)
		p.indent++
		p.blockContents(s.Body)
		for _, post := range s.Post {
			p.stmt(post)
		}
		p.indent--
		p.line("}")
	case *Break:
		p.line("break")
	case *Continue:
		p.line("continue")
	case *Return:
		if s.Value == nil {
			p.line("return")
		} else {
			p.line("return %s", PrintExpr(s.Value))
		}
	}
}

func (p *printer) expr(e Expr) {
	switch e := e.(type) {
	case *IntConst:
		p.b.WriteString(strconv.FormatInt(e.Value, 10))
	case *FloatConst:
		p.b.WriteString(strconv.FormatFloat(e.Value, 'g', -1, 64))
	case *BoolConst:
		p.b.WriteString(strconv.FormatBool(e.Value))
	case *StrConst:
		p.b.WriteString(strconv.Quote(e.Value))
	case *UnitConst:
		p.b.WriteString("()")
	case *LocalGet:
		p.b.WriteString(e.Name)
	case *FuncRef:
		if e.Builtin {
			p.b.WriteString("@" + e.Name)
		} else {
			p.b.WriteString("&" + e.Name)
		}
	case *Binary:
		fmt.Fprintf(p.b, "(%s %s %s)", PrintExpr(e.L), e.Op, PrintExpr(e.R))
	case *Unary:
		op := "-"
		if e.Op == OpNot {
			op = "!"
		}
		fmt.Fprintf(p.b, "(%s%s)", op, PrintExpr(e.Operand))
	case *StringConcat:
		fmt.Fprintf(p.b, "concat(%s, %s)", PrintExpr(e.L), PrintExpr(e.R))
	case *ToString:
		fmt.Fprintf(p.b, "tostr(%s)", PrintExpr(e.Operand))
	case *ArrayLen:
		fmt.Fprintf(p.b, "len(%s)", PrintExpr(e.Target))
	case *Call:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = PrintExpr(a)
		}
		fmt.Fprintf(p.b, "%s(%s)", PrintExpr(e.Callee), strings.Join(args, ", "))
	case *Lambda:
		params := make([]string, len(e.Params))
		for i, param := range e.Params {
			params[i] = param.Name
		}
		fmt.Fprintf(p.b, "\\(%s) %s", strings.Join(params, ", "), PrintExpr(e.Body))
	case *If:
		if e.Else == nil {
			fmt.Fprintf(p.b, "if %s %s", PrintExpr(e.Cond), PrintExpr(e.Then))
		} else {
			fmt.Fprintf(p.b, "if %s %s else %s",
				PrintExpr(e.Cond), PrintExpr(e.Then), PrintExpr(e.Else))
		}
	case *Block:
		sub := printer{b: p.b, indent: p.indent + 1}
		p.b.WriteString("{\n")
		sub.blockContents(e)
		p.b.WriteString(strings.Repeat("  ", p.indent))
		p.b.WriteString("}")
	case *StructNew:
		fields := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = PrintExpr(f)
		}
		fmt.Fprintf(p.b, "%s{%s}", e.Struct, strings.Join(fields, ", "))
	case *FieldGet:
		fmt.Fprintf(p.b, "%s.%s", PrintExpr(e.Target), e.Field)
	case *EnumNew:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = PrintExpr(a)
		}
		fmt.Fprintf(p.b, "%s::%s(%s)", e.Enum, e.Variant, strings.Join(args, ", "))
	case *EnumTag:
		fmt.Fprintf(p.b, "tag(%s)", PrintExpr(e.Target))
	case *EnumPayload:
		fmt.Fprintf(p.b, "payload(%s, %d)", PrintExpr(e.Target), e.Index)
	case *ArrayNew:
		elems := make([]string, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = PrintExpr(el)
		}
		fmt.Fprintf(p.b, "[%s]", strings.Join(elems, ", "))
	case *IndexGet:
		fmt.Fprintf(p.b, "%s[%s]", PrintExpr(e.Target), PrintExpr(e.Index))
	case *Unreachable:
		p.b.WriteString("unreachable")
	}
}
