package dsl

import (
	"io"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var scriptParser = participle.MustBuild[Script](
	participle.Lexer(dslLexer),
	participle.Elide(elided...),
)

// Script is a sequence of pointer gestures replayed against the preview:
//
//	display 0 0 400 300
//	click 380 95
//	press 95 100
//	move 150 120
//	release 150 120
//	context 150 120 page 600 400
//	leave
//	select teacher
//	edit teacherName "Sara"
type Script struct {
	Steps []*Step `parser:"Newline* ( @@ ( ';' | Newline )* )*"`
}

// Step is one scripted event. Exactly one field is set.
type Step struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Display *RectArgs      `parser:"  'display' @@"`
	Click   *PointerArgs   `parser:"| 'click' @@"`
	Press   *PointerArgs   `parser:"| 'press' @@"`
	Move    *PointArgs     `parser:"| 'move' @@"`
	Release *PointerArgs   `parser:"| 'release' @@"`
	Context *ContextArgs   `parser:"| 'context' @@"`
	Leave   bool           `parser:"| @'leave'"`
	Select  *string        `parser:"| 'select' @Ident"`
	Edit    *EditArgs      `parser:"| 'edit' @@"`
}

// Kind names the step for logs and errors.
func (s *Step) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Display != nil:
		return "display"
	case s.Click != nil:
		return "click"
	case s.Press != nil:
		return "press"
	case s.Move != nil:
		return "move"
	case s.Release != nil:
		return "release"
	case s.Context != nil:
		return "context"
	case s.Leave:
		return "leave"
	case s.Select != nil:
		return "select"
	case s.Edit != nil:
		return "edit"
	default:
		return "unknown"
	}
}

// RectArgs is the on-screen rectangle of the preview: left top width height.
type RectArgs struct {
	Left   float64 `parser:"@Number"`
	Top    float64 `parser:"@Number"`
	Width  float64 `parser:"@Number"`
	Height float64 `parser:"@Number"`
}

// PointArgs is a client-space position.
type PointArgs struct {
	X float64 `parser:"@Number"`
	Y float64 `parser:"@Number"`
}

// PointerArgs is a position plus an optional button (primary by default).
type PointerArgs struct {
	X      float64 `parser:"@Number"`
	Y      float64 `parser:"@Number"`
	Button string  `parser:"@('primary' | 'middle' | 'secondary')?"`
}

// ContextArgs is a context-menu request; page coordinates default to the client ones.
type ContextArgs struct {
	X    float64    `parser:"@Number"`
	Y    float64    `parser:"@Number"`
	Page *PointArgs `parser:"( 'page' @@ )?"`
}

// EditArgs sets a field value.
type EditArgs struct {
	Key   string        `parser:"@Ident"`
	Value StringLiteral `parser:"@String"`
}

// ParseScript parses a gesture script.
func ParseScript(filename string, r io.Reader) (*Script, error) {
	return scriptParser.Parse(filename, r)
}

// ParseScriptString parses a gesture script from a string.
func ParseScriptString(filename, input string) (*Script, error) {
	return scriptParser.ParseString(filename, input)
}
