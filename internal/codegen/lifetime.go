package codegen

import (
	"github.com/bolide-lang/bolide/internal/ast"
)

// checkClause verifies that the lifetime clause of the current function
// names its parameters.
func (s *fnState) checkClause() {
	for _, name := range s.fn.lifetime {
		found := false
		for _, p := range s.fn.params {
			if p.Name == name {
				found = true
				break
			}
		}
		if !found {
			s.errorf(Lifetime, s.fn.def.Pos(), "lifetime clause of %s names %s, which is not a parameter", s.fn.name, name)
		}
	}
}

// noteSource records the binding the value of e was derived from.
func (s *fnState) noteSource(name string, e ast.Expr) {
	if root := s.rootOf(e); root != "" && root != name {
		s.sources[name] = root
		return
	}
	delete(s.sources, name)
}

// rootOf returns the binding at the root of e, following member and index
// chains and lifetime-function calls into their borrowed argument.
func (s *fnState) rootOf(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Ident:
		if s.lookup(e.Name) != nil {
			return e.Name
		}
	case *ast.Member:
		if _, ok := s.moduleRef(e.X); !ok {
			return s.rootOf(e.X)
		}
	case *ast.Index:
		return s.rootOf(e.X)
	case *ast.Call:
		fi := s.calleeFunc(e)
		if fi == nil || !fi.hasLifetime() {
			return ""
		}
		i := fi.clauseParam()
		if fi.class != nil && !fi.ctor {
			if i == 0 {
				if m, ok := e.Fun.(*ast.Member); ok {
					return s.rootOf(m.X)
				}
				return ""
			}
			i--
		}
		if i >= 0 && i < len(e.Args) {
			return s.rootOf(e.Args[i])
		}
	}
	return ""
}

// derivesFromClause reports whether the binding name leads back to a
// parameter named in the lifetime clause.
func (s *fnState) derivesFromClause(name string) bool {
	seen := make(map[string]bool)
	for name != "" && !seen[name] {
		for _, p := range s.fn.lifetime {
			if p == name {
				return true
			}
		}
		seen[name] = true
		name = s.sources[name]
	}
	return false
}

// checkReturn verifies that a lifetime function returns a value derived
// from its clause parameters.
func (s *fnState) checkReturn(e ast.Expr) {
	if !s.derivesFromClause(s.rootOf(e)) {
		s.errorf(Lifetime, e.Pos(), "function %s returns a value not derived from %v", s.fn.name, s.fn.lifetime)
	}
}

// checkBorrows reports bindings that outlive the binding they borrow
// from, which is about to go out of scope with sc.
func (s *fnState) checkBorrows(sc *scope, pos ast.Pos) {
	dying := make(map[*variable]bool, len(sc.vars))
	for _, v := range sc.vars {
		dying[v] = true
	}
	for _, outer := range s.scopes[:len(s.scopes)-1] {
		for _, v := range outer.vars {
			if v.borrowOf != nil && dying[v.borrowOf] {
				s.errorf(Lifetime, pos, "%s borrows from %s, which does not live long enough", v.name, v.borrowOf.name)
			}
		}
	}
}
