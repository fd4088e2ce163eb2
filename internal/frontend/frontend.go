// Package frontend models the upstream contract this translator consumes
// (spec.md §6: "An opaque C front-end exposing: load-from-command-line
// entry point returning an AST unit; source-manager queries; a visitor
// over top-level decls; a visitor over preprocessing entities ...").
// Driving a real front end (Clang or equivalent) is out of scope
// (spec.md §1); Unit is the seam a real binding would satisfy, and
// LoadFixture is the fixture-backed stand-in this repository actually
// ships, mirroring the way cmd/ralph-cc's integration tests load
// testdata/integration.yaml rather than invoking CompCert directly.
package frontend

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anvil-lang/c2z/internal/csrc"
)

// Unit is the AST unit a front-end load entry point hands back. A real
// Clang binding would implement this over a live TranslationUnitDecl;
// LoadFixture implements it over a deserialized fixture instead.
type Unit interface {
	// Decls returns the top-level declarations in source order.
	Decls() []csrc.Decl
	// Macros returns the preprocessor macro-definition records in
	// source order.
	Macros() []csrc.MacroDef
	// Diagnostics returns the front end's own error-message list,
	// re-exported verbatim (spec.md §6). Empty for a clean parse.
	Diagnostics() []string
}

// fixtureUnit is the Unit implementation LoadFixture returns.
type fixtureUnit struct {
	tu          csrc.TranslationUnit
	diagnostics []string
}

func (u *fixtureUnit) Decls() []csrc.Decl      { return u.tu.Decls }
func (u *fixtureUnit) Macros() []csrc.MacroDef { return u.tu.Macros }
func (u *fixtureUnit) Diagnostics() []string   { return u.diagnostics }

// LoadFixture reads a YAML translation-unit fixture and builds a Unit
// from it, standing in for a real front-end's load-from-command-line
// entry point. The fixture format is described by the Fixture type in
// fixture.go; diagnostics carries any pre-recorded fixture-level errors
// (the SemanticAnalyzeFail case of spec.md §6), left empty otherwise.
func LoadFixture(path string) (Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frontend: reading fixture %s: %w", path, err)
	}
	return LoadFixtureBytes(data)
}

// LoadFixtureBytes parses fixture YAML already read into memory (used by
// tests and by callers that already have the bytes in hand).
func LoadFixtureBytes(data []byte) (Unit, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("frontend: parsing fixture: %w", err)
	}
	tu, diags, err := fx.build()
	if err != nil {
		return nil, err
	}
	return &fixtureUnit{tu: tu, diagnostics: diags}, nil
}
