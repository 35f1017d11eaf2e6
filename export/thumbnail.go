package export

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/ByLCY/stencil/geom"
)

// Thumbnail 将一帧等比缩进 maxW×maxH（只缩小不放大），用于模板列表预览。
func Thumbnail(src image.Image, maxW, maxH int) *image.RGBA {
	b := src.Bounds()
	w, h := geom.FitSize(b.Dx(), b.Dy(), maxW, maxH)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
