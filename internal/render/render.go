// Package render rasterizes game snapshots into debug frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/fogleman/gg"

	"spark-arena/internal/game"
	"spark-arena/internal/physics"
)

// DefaultScale is pixels per world unit
const DefaultScale = 8.0

var (
	backgroundColor = color.RGBA{12, 12, 28, 255}
	wallColor       = color.RGBA{90, 90, 110, 255}
	edgeColor       = color.RGBA{60, 30, 30, 255}
	PlayerColor     = color.RGBA{64, 160, 255, 255}
	EnemyColor      = color.RGBA{255, 80, 80, 255}
	bulletColor     = color.RGBA{255, 220, 90, 255}
	hudColor        = color.RGBA{220, 220, 230, 255}
)

// Renderer draws a GameSnapshot of the whole arena, edge included.
// It reuses one gg context, so calls are serialized.
type Renderer struct {
	mu     sync.Mutex
	dc     *gg.Context
	scale  float64
	width  int
	height int
}

// NewRenderer creates a renderer at scale pixels per world unit.
// A non-positive scale uses DefaultScale.
func NewRenderer(scale float64) *Renderer {
	if scale <= 0 {
		scale = DefaultScale
	}
	w := int(2 * game.EdgeHalfWidth * scale)
	h := int(2 * game.EdgeHalfHeight * scale)
	return &Renderer{
		dc:     gg.NewContext(w, h),
		scale:  scale,
		width:  w,
		height: h,
	}
}

// Size returns the frame dimensions in pixels
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// ToPixel maps a world position onto the frame
func (r *Renderer) ToPixel(x, y float64) (float64, float64) {
	return (x + game.EdgeHalfWidth) * r.scale, (y + game.EdgeHalfHeight) * r.scale
}

// Render draws snap and returns a copy of the frame
func (r *Renderer) Render(snap *game.GameSnapshot) image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draw(snap)
	src := r.dc.Image()
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.(*image.RGBA).Pix)
	return dst
}

// EncodePNG draws snap and writes it to w as PNG
func (r *Renderer) EncodePNG(w io.Writer, snap *game.GameSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draw(snap)
	return r.dc.EncodePNG(w)
}

func (r *Renderer) draw(snap *game.GameSnapshot) {
	dc := r.dc

	dc.SetColor(backgroundColor)
	dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
	dc.Fill()

	r.drawRects(game.Edges(), edgeColor)
	r.drawRects(game.Walls(), wallColor)

	for _, e := range snap.Enemies {
		r.drawUnit(e, EnemyColor)
	}
	if !snap.Player.Dead {
		r.drawUnit(snap.Player, PlayerColor)
	}

	dc.SetColor(bulletColor)
	for _, b := range snap.Bullets {
		x, y := r.ToPixel(b.X, b.Y)
		dc.DrawCircle(x, y, game.BulletRadius*r.scale)
		dc.Fill()
	}

	// HUD
	dc.SetColor(hudColor)
	dc.DrawString(fmt.Sprintf("tick %d  kills %d  enemies %d", snap.TickNumber, snap.Kills, snap.EnemyCount), 8, 16)
	if snap.LevelDone {
		dc.DrawStringAnchored("LEVEL COMPLETE", float64(r.width)/2, float64(r.height)/2, 0.5, 0.5)
	}
}

func (r *Renderer) drawRects(rects []game.Rect, c color.Color) {
	r.dc.SetColor(c)
	for _, rect := range rects {
		x, y := r.ToPixel(rect.Center.X-rect.HalfWidth, rect.Center.Y-rect.HalfHeight)
		r.dc.DrawRectangle(x, y, 2*rect.HalfWidth*r.scale, 2*rect.HalfHeight*r.scale)
		r.dc.Fill()
	}
}

func (r *Renderer) drawUnit(u game.UnitSnapshot, c color.RGBA) {
	dc := r.dc
	x, y := r.ToPixel(u.X, u.Y)
	radius := u.Size * r.scale

	// Attack cone, brighter while something is in range
	cone := c
	cone.A = 40
	if u.InRange > 0 {
		cone.A = 90
	}
	dc.SetColor(cone)
	for i, v := range game.AttackCone(u.Size).Vertices {
		p := v.Rotate(u.Angle)
		px, py := r.ToPixel(u.X+p.X, u.Y+p.Y)
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.ClosePath()
	dc.Fill()

	// Body
	dc.SetColor(c)
	dc.DrawCircle(x, y, radius)
	dc.Fill()

	// Facing
	tip := physics.FromAngle(u.Angle, u.Size)
	tx, ty := r.ToPixel(u.X+tip.X, u.Y+tip.Y)
	dc.SetColor(color.White)
	dc.SetLineWidth(2)
	dc.DrawLine(x, y, tx, ty)
	dc.Stroke()

	// Health bar
	if u.MaxHP <= 0 {
		return
	}
	barWidth := 2.5 * radius
	barHeight := 4.0
	hpPercent := max(float64(u.HP)/float64(u.MaxHP), 0)

	dc.SetColor(color.RGBA{51, 51, 51, 255})
	dc.DrawRectangle(x-barWidth/2, y-radius-10, barWidth, barHeight)
	dc.Fill()

	if hpPercent > 0.5 {
		dc.SetColor(color.RGBA{83, 255, 69, 255})
	} else if hpPercent > 0.25 {
		dc.SetColor(color.RGBA{255, 149, 0, 255})
	} else {
		dc.SetColor(color.RGBA{255, 62, 62, 255})
	}
	dc.DrawRectangle(x-barWidth/2, y-radius-10, barWidth*hpPercent, barHeight)
	dc.Fill()
}
