package dsl

import (
	"errors"
	"fmt"
	"io"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/stencil/template"
)

var templateParser = participle.MustBuild[TemplateFile](
	participle.Lexer(dslLexer),
	participle.Elide(elided...),
)

// TemplateFile is the root of a .tpl file; it may declare several templates.
type TemplateFile struct {
	Templates []*TemplateDecl `parser:"Newline* ( @@ Newline* )*"`
}

// TemplateDecl declares one ImageConfig.
type TemplateDecl struct {
	Pos   lexer.Position  `parser:"" json:"-"`
	ID    string          `parser:"'template' @Ident"`
	Props []*TemplateProp `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// TemplateProp is one statement inside a template block.
type TemplateProp struct {
	Name       *StringLiteral `parser:"  'name' @String"`
	Category   *string        `parser:"| 'category' @Ident"`
	Background *StringLiteral `parser:"| 'background' @String"`
	Size       *SizeDecl      `parser:"| 'size' @@"`
	Text       *TextDecl      `parser:"| @@"`
	Logo       *LogoDecl      `parser:"| @@"`
}

// SizeDecl is `size W H` in canvas pixels.
type SizeDecl struct {
	Width  int `parser:"@Number"`
	Height int `parser:"@Number"`
}

// PointDecl is `at X Y`.
type PointDecl struct {
	X float64 `parser:"@Number"`
	Y float64 `parser:"@Number"`
}

// TextDecl declares a text overlay.
type TextDecl struct {
	Pos   lexer.Position `parser:"" json:"-"`
	ID    string         `parser:"'text' @Ident"`
	Props []*TextProp    `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// TextProp is one statement inside a text block.
type TextProp struct {
	Value    *StringLiteral `parser:"  'value' @String"`
	At       *PointDecl     `parser:"| 'at' @@"`
	Font     *FontDecl      `parser:"| 'font' @@"`
	Color    *ColorLiteral  `parser:"| 'color' @(Color | String)"`
	Editable *EditableDecl  `parser:"| @@"`
}

// FontDecl is `font ["family"] [size] [bold|normal]`.
type FontDecl struct {
	Family *StringLiteral `parser:"@String?"`
	Size   *float64       `parser:"@Number?"`
	Weight *string        `parser:"@('bold' | 'normal')?"`
}

// EditableDecl marks an overlay as user-editable, optionally bound to a field key.
type EditableDecl struct {
	Keyword bool   `parser:"@'editable'"`
	Key     string `parser:"@Ident?"`
}

// LogoDecl declares the circular logo.
type LogoDecl struct {
	Pos   lexer.Position `parser:"" json:"-"`
	ID    string         `parser:"'logo' @Ident"`
	Props []*LogoProp    `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// LogoProp is one statement inside a logo block.
type LogoProp struct {
	Src      *StringLiteral `parser:"  'src' @String"`
	At       *PointDecl     `parser:"| 'at' @@"`
	Radius   *float64       `parser:"| 'radius' @Number"`
	Editable *EditableDecl  `parser:"| @@"`
}

// ParseTemplates parses a template file and converts every declaration into
// a validated, normalised ImageConfig.
func ParseTemplates(filename string, r io.Reader) ([]template.ImageConfig, error) {
	file, err := templateParser.Parse(filename, r)
	if err != nil {
		return nil, err
	}
	return file.Configs()
}

// ParseTemplatesString is ParseTemplates over a string.
func ParseTemplatesString(filename, input string) ([]template.ImageConfig, error) {
	file, err := templateParser.ParseString(filename, input)
	if err != nil {
		return nil, err
	}
	return file.Configs()
}

// Configs converts the AST. 同一属性重复出现时以最后一次为准。
func (f *TemplateFile) Configs() ([]template.ImageConfig, error) {
	out := make([]template.ImageConfig, 0, len(f.Templates))
	var errs []error
	seen := map[string]bool{}
	for _, decl := range f.Templates {
		cfg, err := decl.Config()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[cfg.ID] {
			errs = append(errs, fmt.Errorf("%s: 模板 id %s 重复", decl.Pos, cfg.ID))
			continue
		}
		seen[cfg.ID] = true
		out = append(out, cfg)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Config converts one declaration.
func (d *TemplateDecl) Config() (template.ImageConfig, error) {
	cfg := template.ImageConfig{ID: d.ID, Name: d.ID}
	for _, p := range d.Props {
		switch {
		case p.Name != nil:
			cfg.Name = string(*p.Name)
		case p.Category != nil:
			cfg.Category = template.TemplateCategory(*p.Category)
		case p.Background != nil:
			cfg.ImageURL = string(*p.Background)
		case p.Size != nil:
			cfg.CanvasWidth, cfg.CanvasHeight = p.Size.Width, p.Size.Height
		case p.Text != nil:
			cfg.Overlays = append(cfg.Overlays, p.Text.Overlay())
		case p.Logo != nil:
			if cfg.LogoOverlay != nil {
				return cfg, fmt.Errorf("%s: 模板 %s 只能声明一个 logo", p.Logo.Pos, d.ID)
			}
			logo := p.Logo.Overlay()
			cfg.LogoOverlay = &logo
		}
	}
	template.Normalize(&cfg)
	if err := template.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", d.Pos, err)
	}
	return cfg, nil
}

// Overlay converts a text declaration.
func (t *TextDecl) Overlay() template.TextOverlay {
	o := template.TextOverlay{ID: t.ID}
	for _, p := range t.Props {
		switch {
		case p.Value != nil:
			o.Text = string(*p.Value)
		case p.At != nil:
			o.X, o.Y = p.At.X, p.At.Y
		case p.Font != nil:
			if p.Font.Family != nil {
				o.FontFamily = string(*p.Font.Family)
			}
			if p.Font.Size != nil {
				o.FontSize = *p.Font.Size
			}
			if p.Font.Weight != nil {
				o.FontWeight = template.FontWeight(*p.Font.Weight)
			}
		case p.Color != nil:
			o.Color = string(*p.Color)
		case p.Editable != nil:
			o.IsEditableByUser = true
			o.EditKey = template.EditableFieldKey(p.Editable.Key)
		}
	}
	return o
}

// Overlay converts a logo declaration.
func (l *LogoDecl) Overlay() template.LogoOverlay {
	o := template.LogoOverlay{ID: l.ID}
	for _, p := range l.Props {
		switch {
		case p.Src != nil:
			o.ImageURL = string(*p.Src)
		case p.At != nil:
			o.X, o.Y = p.At.X, p.At.Y
		case p.Radius != nil:
			o.Radius = *p.Radius
		case p.Editable != nil:
			o.IsEditableByUser = true
			o.EditKey = template.EditableFieldKey(p.Editable.Key)
		}
	}
	return o
}
