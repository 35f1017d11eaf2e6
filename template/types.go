package template

// 该文件定义模板配置与用户编辑值，供合成、交互、导出与模板存储共用。

// FontWeight 只区分常规与加粗两档。
type FontWeight string

const (
	FontWeightNormal FontWeight = "normal"
	FontWeightBold   FontWeight = "bold"
)

// TemplateCategory 是模板所属的分类。
type TemplateCategory string

const (
	CategoryNotes          TemplateCategory = "notes"
	CategoryGrades         TemplateCategory = "grades"
	CategoryPlan           TemplateCategory = "plan"
	CategoryAdministrative TemplateCategory = "administrative"
)

// Categories lists every known category in display order.
var Categories = []TemplateCategory{CategoryNotes, CategoryGrades, CategoryPlan, CategoryAdministrative}

// Valid reports whether c is one of the known categories.
func (c TemplateCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ImageConfig 是一个完整的模板：背景图、文本叠加层列表与可选的圆形 logo。
// CanvasWidth/CanvasHeight 为模板的权威分辨率（像素），导出时使用。
type ImageConfig struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Category     TemplateCategory `json:"category"`
	ImageURL     string           `json:"imageUrl"`
	Overlays     []TextOverlay    `json:"overlays"`
	LogoOverlay  *LogoOverlay     `json:"logoOverlay,omitempty"`
	CanvasWidth  int              `json:"canvasWidth"`
	CanvasHeight int              `json:"canvasHeight"`
}

// TextOverlay 描述一段右对齐文本，(X, Y) 为字形串右下角的基线锚点（画布像素）。
type TextOverlay struct {
	ID               string           `json:"id"`
	Text             string           `json:"text"`
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	FontFamily       string           `json:"fontFamily"`
	FontSize         float64          `json:"fontSize"`
	Color            string           `json:"color"`
	FontWeight       FontWeight       `json:"fontWeight"`
	IsEditableByUser bool             `json:"isEditableByUser"`
	EditKey          EditableFieldKey `json:"editKey,omitempty"`
}

// LogoOverlay 描述以 (X, Y) 为圆心、Radius 为半径的圆形裁剪区域。
type LogoOverlay struct {
	ID               string           `json:"id"`
	ImageURL         string           `json:"imageUrl"`
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	Radius           float64          `json:"radius"`
	IsEditableByUser bool             `json:"isEditableByUser"`
	EditKey          EditableFieldKey `json:"editKey,omitempty"`
}

// Clone returns a deep copy so session-local drags never touch the stored template.
func (c ImageConfig) Clone() ImageConfig {
	out := c
	out.Overlays = append([]TextOverlay(nil), c.Overlays...)
	if c.LogoOverlay != nil {
		logo := *c.LogoOverlay
		out.LogoOverlay = &logo
	}
	return out
}

// Overlay returns the overlay with the given id.
func (c ImageConfig) Overlay(id string) (TextOverlay, bool) {
	return FindOverlay(c.Overlays, id)
}

// FindOverlay looks up an overlay by id in list order.
func FindOverlay(overlays []TextOverlay, id string) (TextOverlay, bool) {
	for _, o := range overlays {
		if o.ID == id {
			return o, true
		}
	}
	return TextOverlay{}, false
}

// 默认值，与编辑器新建叠加层时保持一致。
const (
	DefaultFontFamily = "Cairo, Arial, sans-serif"
	DefaultFontSize   = 24
	DefaultFontColor  = "#000000"
	DefaultFontWeight = FontWeightNormal

	MaxCanvasWidth  = 1200
	MaxCanvasHeight = 1200
)

// FontSizes are the sizes offered by the overlay editor.
var FontSizes = []float64{12, 14, 16, 18, 20, 24, 28, 32, 36, 48, 64, 72}
