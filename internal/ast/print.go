package ast

import (
	"fmt"
	"strings"
)

// Print renders a program back to source text. The output re-parses to a
// structurally identical tree, which is what the parser round-trip tests
// rely on. Desugared forms print in their surface spelling.
func Print(prog *Program) string {
	p := &printer{}
	for _, decl := range prog.Decls {
		p.printDecl(decl)
		p.newline()
	}
	for _, stmt := range prog.Stmts {
		p.printStmt(stmt)
		p.newline()
	}
	return p.sb.String()
}

// PrintExpr renders a single expression.
func PrintExpr(expr Expr) string {
	p := &printer{}
	p.printExpr(expr)
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) write(s string) {
	p.sb.WriteString(s)
}

func (p *printer) newline() {
	p.sb.WriteByte('\n')
	for i := 0; i < p.indent; i++ {
		p.sb.WriteString("    ")
	}
}

func (p *printer) printDecl(decl Decl) {
	switch d := decl.(type) {
	case *FnDecl:
		p.write("fn " + d.Name.Name + "(")
		for i, param := range d.Params {
			if i > 0 {
				p.write(", ")
			}
			p.write(param.Name.Name)
			if param.Type != nil {
				p.write(": ")
				p.printType(param.Type)
			}
		}
		p.write(")")
		if d.ReturnType != nil {
			p.write(" -> ")
			p.printType(d.ReturnType)
		}
		p.write(" ")
		p.printBlock(d.Body)

	case *StructDecl:
		p.write("struct " + d.Name.Name + " {")
		p.indent++
		for _, field := range d.Fields {
			p.newline()
			p.write(field.Name.Name + ": ")
			p.printType(field.Type)
			p.write(",")
		}
		p.indent--
		p.newline()
		p.write("}")

	case *EnumDecl:
		p.write("enum " + d.Name.Name + " {")
		p.indent++
		for _, variant := range d.Variants {
			p.newline()
			p.write(variant.Name.Name)
			if len(variant.Payload) > 0 {
				p.write("(")
				for i, payload := range variant.Payload {
					if i > 0 {
						p.write(", ")
					}
					p.printType(payload)
				}
				p.write(")")
			}
			p.write(",")
		}
		p.indent--
		p.newline()
		p.write("}")
	}
}

func (p *printer) printStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *LetStmt:
		p.write("let ")
		if s.Mutable {
			p.write("mut ")
		}
		p.write(s.Name.Name)
		if s.Type != nil {
			p.write(": ")
			p.printType(s.Type)
		}
		p.write(" = ")
		p.printExpr(s.Value)
		p.write(";")

	case *ReturnStmt:
		p.write("return")
		if s.Value != nil {
			p.write(" ")
			p.printExpr(s.Value)
		}
		p.write(";")

	case *ExprStmt:
		p.printExpr(s.Expr)
		p.write(";")

	case *WhileStmt:
		p.write("while ")
		p.printExpr(s.Cond)
		p.write(" ")
		p.printBlock(s.Body)

	case *ForStmt:
		p.write("for " + s.Var.Name + " in ")
		p.printExpr(s.Iter)
		p.write(" ")
		p.printBlock(s.Body)

	case *BreakStmt:
		p.write("break;")

	case *ContinueStmt:
		p.write("continue;")
	}
}

func (p *printer) printBlock(block *BlockExpr) {
	p.write("{")
	p.indent++
	for _, stmt := range block.Stmts {
		p.newline()
		p.printStmt(stmt)
	}
	if block.Tail != nil {
		p.newline()
		p.printExpr(block.Tail)
	}
	p.indent--
	p.newline()
	p.write("}")
}

func (p *printer) printExpr(expr Expr) {
	switch e := expr.(type) {
	case *Ident:
		p.write(e.Name)

	case *IntegerLit:
		p.write(e.Text)

	case *FloatLit:
		p.write(e.Text)

	case *BoolLit:
		if e.Value {
			p.write("true")
		} else {
			p.write("false")
		}

	case *StringLit:
		p.write(quoteString(e.Value))

	case *UnitLit:
		p.write("()")

	case *FStringLit:
		p.write("f\"")
		for _, part := range e.Parts {
			if part.Expr != nil {
				p.write("{")
				p.printExpr(part.Expr)
				p.write("}")
			} else {
				p.write(escapeStringBody(part.Text))
			}
		}
		p.write("\"")

	case *ArrayLit:
		p.write("[")
		for i, elem := range e.Elems {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(elem)
		}
		p.write("]")

	case *PrefixExpr:
		p.write(string(e.Op))
		p.write("(")
		p.printExpr(e.Expr)
		p.write(")")

	case *InfixExpr:
		p.write("(")
		p.printExpr(e.Left)
		p.write(" " + string(e.Op) + " ")
		p.printExpr(e.Right)
		p.write(")")

	case *AssignExpr:
		p.printExpr(e.Target)
		p.write(" = ")
		p.printExpr(e.Value)

	case *CallExpr:
		p.printExpr(e.Callee)
		p.write("(")
		for i, arg := range e.Args {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(arg)
		}
		p.write(")")

	case *IndexExpr:
		p.printExpr(e.Target)
		p.write("[")
		p.printExpr(e.Index)
		p.write("]")

	case *FieldExpr:
		p.printExpr(e.Target)
		p.write("." + e.Field.Name)

	case *LambdaExpr:
		p.write("|")
		for i, param := range e.Params {
			if i > 0 {
				p.write(", ")
			}
			p.write(param.Name)
		}
		p.write("| ")
		p.printExpr(e.Body)

	case *IfExpr:
		p.write("if ")
		p.printExpr(e.Cond)
		p.write(" ")
		p.printBlock(e.Then)
		if e.Else != nil {
			p.write(" else ")
			p.printExpr(e.Else)
		}

	case *MatchExpr:
		p.write("match ")
		p.printExpr(e.Scrutinee)
		p.write(" {")
		p.indent++
		for _, arm := range e.Arms {
			p.newline()
			p.printPattern(arm.Pattern)
			if arm.Guard != nil {
				p.write(" if ")
				p.printExpr(arm.Guard)
			}
			p.write(" => ")
			p.printExpr(arm.Body)
			p.write(",")
		}
		p.indent--
		p.newline()
		p.write("}")

	case *StructLit:
		p.write(e.Name.Name + " { ")
		for i, field := range e.Fields {
			if i > 0 {
				p.write(", ")
			}
			p.write(field.Name.Name + ": ")
			p.printExpr(field.Value)
		}
		p.write(" }")

	case *VariantExpr:
		p.write(e.Enum.Name + "::" + e.Variant.Name)

	case *RangeExpr:
		p.printExpr(e.Low)
		p.write("..")
		p.printExpr(e.High)

	case *BlockExpr:
		p.printBlock(e)

	case *BadExpr:
		p.write("/* error */ ()")

	default:
		panic(fmt.Sprintf("printer: unhandled expression %T", expr))
	}
}

func (p *printer) printType(typ TypeExpr) {
	switch t := typ.(type) {
	case *NamedType:
		p.write(t.Name.Name)

	case *ArrayType:
		p.write("[")
		p.printType(t.Elem)
		p.write("]")

	case *FnType:
		p.write("fn(")
		for i, param := range t.Params {
			if i > 0 {
				p.write(", ")
			}
			p.printType(param)
		}
		p.write(")")
		if t.Return != nil {
			p.write(" -> ")
			p.printType(t.Return)
		}
	}
}

func (p *printer) printPattern(pat Pattern) {
	switch pt := pat.(type) {
	case *PatternWild:
		p.write("_")

	case *PatternBinding:
		p.write(pt.Name.Name)

	case *PatternLiteral:
		p.printExpr(pt.Lit)

	case *PatternVariant:
		if pt.Enum != nil {
			p.write(pt.Enum.Name + "::")
		}
		p.write(pt.Variant.Name)
		if len(pt.Elems) > 0 {
			p.write("(")
			for i, elem := range pt.Elems {
				if i > 0 {
					p.write(", ")
				}
				p.printPattern(elem)
			}
			p.write(")")
		}
	}
}

func quoteString(s string) string {
	return "\"" + escapeStringBody(s) + "\""
}

func escapeStringBody(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		case '\r':
			sb.WriteString("\\r")
		case '\\':
			sb.WriteString("\\\\")
		case '"':
			sb.WriteString("\\\"")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
