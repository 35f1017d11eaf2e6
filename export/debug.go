package export

import (
	"encoding/json"
	"os"

	"github.com/ByLCY/stencil/geom"
)

// WriteBoundsJSON 将一次渲染得到的命中框输出为 JSON，便于调试叠加层位置。
func WriteBoundsJSON(bounds []geom.Bounds, path string) error {
	if bounds == nil {
		bounds = []geom.Bounds{}
	}
	data, err := json.MarshalIndent(bounds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
