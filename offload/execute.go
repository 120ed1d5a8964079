package offload

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"arenaclient/kernel"
)

var errBadBuffer = errors.New("pixel buffer does not match dimensions")

// handle decodes one request, runs its kernel and encodes the response. It
// is the only code the worker runs, and the in-process path runs it too.
func handle(msg []byte) (out []byte) {
	var req request
	if err := msgpack.Unmarshal(msg, &req); err != nil {
		out, _ = msgpack.Marshal(&response{Err: fmt.Sprintf("decode request: %v", err)})
		return out
	}
	resp := response{Kind: req.Kind, ID: req.ID}
	defer func() {
		if r := recover(); r != nil {
			resp.Pix = nil
			resp.Err = fmt.Sprintf("kernel panic: %v", r)
			out, _ = msgpack.Marshal(&resp)
		}
	}()

	img, frame, err := execute(req.Kind, req.Params)
	if err != nil {
		resp.Err = err.Error()
	} else {
		resp.Width = img.Bounds().Dx()
		resp.Height = img.Bounds().Dy()
		resp.Pix = img.Pix
		resp.Frame = frame
	}
	out, err = msgpack.Marshal(&resp)
	if err != nil {
		out, _ = msgpack.Marshal(&response{Kind: req.Kind, ID: req.ID, Err: err.Error()})
	}
	return out
}

func execute(kind Kind, raw []byte) (*image.RGBA, int, error) {
	switch kind {
	case KindExplosion:
		var p ExplosionParams
		if err := msgpack.Unmarshal(raw, &p); err != nil {
			return nil, 0, err
		}
		return kernel.ExplosionFalloff(p.Width, p.Height, p.CenterX, p.CenterY, p.Radius, p.Intensity), 0, nil
	case KindParticles:
		var p ParticleParams
		if err := msgpack.Unmarshal(raw, &p); err != nil {
			return nil, 0, err
		}
		return kernel.ParticleRasterize(p.Width, p.Height, p.Particles), p.Frame, nil
	case KindImage:
		var p ImageParams
		if err := msgpack.Unmarshal(raw, &p); err != nil {
			return nil, 0, err
		}
		src, err := wrap(p.Width, p.Height, p.Pix)
		if err != nil {
			return nil, 0, err
		}
		return processImage(src, p), 0, nil
	case KindBackground:
		var p BackgroundParams
		if err := msgpack.Unmarshal(raw, &p); err != nil {
			return nil, 0, err
		}
		// noise is the only pattern
		return kernel.NoiseBackground(p.Width, p.Height, p.Palette), 0, nil
	case KindTexture:
		var p TextureParams
		if err := msgpack.Unmarshal(raw, &p); err != nil {
			return nil, 0, err
		}
		src, err := wrap(p.Width, p.Height, p.Pix)
		if err != nil {
			return nil, 0, err
		}
		return manipulateTexture(src, p), 0, nil
	}
	return nil, 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func wrap(w, h int, pix []byte) (*image.RGBA, error) {
	if w < 0 || h < 0 || len(pix) != w*h*4 {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", errBadBuffer, w, h, len(pix))
	}
	return &image.RGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}, nil
}

func factorOr(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func processImage(src *image.RGBA, p ImageParams) *image.RGBA {
	switch p.Op {
	case OpBlur:
		r := p.Radius
		if r == 0 {
			r = 1
		}
		return kernel.Blur(src, r)
	case OpBrightness:
		return kernel.Brightness(src, factorOr(p.Factor, 1))
	case OpContrast:
		return kernel.Contrast(src, factorOr(p.Factor, 1))
	case OpSaturation:
		return kernel.Saturation(src, factorOr(p.Factor, 1))
	}
	// unknown ops pass the source through
	return kernel.Copy(src)
}

func manipulateTexture(src *image.RGBA, p TextureParams) *image.RGBA {
	switch p.Op {
	case OpCrack:
		lines, width := p.Lines, p.LineWidth
		if lines == 0 {
			lines = 3
		}
		if width == 0 {
			width = 2
		}
		seed := p.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return kernel.Crack(src, lines, width, rand.New(rand.NewSource(seed)))
	case OpBurn:
		return kernel.Burn(src, factorOr(p.Intensity, 0.5))
	case OpFade:
		return kernel.Fade(src, factorOr(p.Alpha, 0.5))
	}
	return kernel.Copy(src)
}
