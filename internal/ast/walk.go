package ast

// Visitor is called for each node during Walk.
// If it returns false, the children of the node are not visited.
type Visitor func(node Node) bool

// Walk traverses an AST in depth-first order.
// If visitor returns false, children are not visited.
func Walk(node Node, v Visitor) {
	if node == nil || !v(node) {
		return
	}

	switch n := node.(type) {
	case *FuncDef:
		walkStmts(n.Body, v)

	case *ClassDef:
		for _, f := range n.Fields {
			walkExpr(f.Default, v)
		}
		for _, m := range n.Methods {
			Walk(m, v)
		}

	case *VarDecl:
		walkExpr(n.Value, v)

	case *Assign:
		walkExpr(n.Target, v)
		walkExpr(n.Value, v)

	case *ExprStmt:
		walkExpr(n.X, v)

	case *Return:
		walkExpr(n.Value, v)

	case *If:
		walkExpr(n.Cond, v)
		walkStmts(n.Then, v)
		for _, e := range n.Elifs {
			walkExpr(e.Cond, v)
			walkStmts(e.Body, v)
		}
		walkStmts(n.Else, v)

	case *While:
		walkExpr(n.Cond, v)
		walkStmts(n.Body, v)

	case *For:
		walkExpr(n.Iter, v)
		walkStmts(n.Body, v)

	case *Pool:
		walkExpr(n.Size, v)
		walkStmts(n.Body, v)

	case *Send:
		walkExpr(n.Chan, v)
		walkExpr(n.Value, v)

	case *Select:
		for _, b := range n.Branches {
			walkExpr(b.Chan, v)
			walkExpr(b.Duration, v)
			walkStmts(b.Body, v)
		}

	case *AwaitScope:
		walkStmts(n.Body, v)

	case *AsyncSelect:
		for _, b := range n.Branches {
			walkExpr(b.Expr, v)
			walkStmts(b.Body, v)
		}

	case *Binary:
		walkExpr(n.X, v)
		walkExpr(n.Y, v)

	case *Unary:
		walkExpr(n.X, v)

	case *Call:
		walkExpr(n.Fun, v)
		walkExprs(n.Args, v)

	case *Index:
		walkExpr(n.X, v)
		walkExpr(n.Index, v)

	case *Member:
		walkExpr(n.X, v)

	case *ListLit:
		walkExprs(n.Elems, v)

	case *DictLit:
		walkExprs(n.Keys, v)
		walkExprs(n.Values, v)

	case *TupleLit:
		walkExprs(n.Elems, v)

	case *Spawn:
		walkExprs(n.Args, v)

	case *Await:
		walkExpr(n.X, v)

	case *AwaitAll:
		walkExprs(n.Exprs, v)

	case *Recv:
		walkExpr(n.Chan, v)

		// Leaves: literals, Ident, Import, ExternBlock
	}
}

// WalkProgram walks every top-level statement of p.
func WalkProgram(p *Program, v Visitor) {
	walkStmts(p.Stmts, v)
}

func walkStmts(list []Stmt, v Visitor) {
	for _, s := range list {
		Walk(s, v)
	}
}

func walkExprs(list []Expr, v Visitor) {
	for _, e := range list {
		walkExpr(e, v)
	}
}

func walkExpr(e Expr, v Visitor) {
	if e != nil {
		Walk(e, v)
	}
}
