package offload

import (
	"image/color"

	"github.com/vmihailenco/msgpack/v5"

	"arenaclient/kernel"
)

// Kind selects the kernel family a request runs.
type Kind string

const (
	KindExplosion  Kind = "explosion_effect"
	KindParticles  Kind = "particle_system"
	KindImage      Kind = "image_processing"
	KindBackground Kind = "background_generation"
	KindTexture    Kind = "texture_manipulation"
)

// ExplosionParams drives kernel.ExplosionFalloff.
type ExplosionParams struct {
	Width     int     `msgpack:"w"`
	Height    int     `msgpack:"h"`
	CenterX   float64 `msgpack:"cx"`
	CenterY   float64 `msgpack:"cy"`
	Radius    float64 `msgpack:"r"`
	Intensity float64 `msgpack:"i"`
}

// ParticleParams drives kernel.ParticleRasterize. Frame is echoed back in
// the result.
type ParticleParams struct {
	Width     int               `msgpack:"w"`
	Height    int               `msgpack:"h"`
	Particles []kernel.Particle `msgpack:"p"`
	Frame     int               `msgpack:"f"`
}

// Image operations.
const (
	OpBlur       = "blur"
	OpBrightness = "brightness"
	OpContrast   = "contrast"
	OpSaturation = "saturation"
)

// ImageParams runs one channel transform or the blur over Pix.
type ImageParams struct {
	Op     string  `msgpack:"op"`
	Width  int     `msgpack:"w"`
	Height int     `msgpack:"h"`
	Pix    []byte  `msgpack:"pix"`
	Factor float64 `msgpack:"factor,omitempty"`
	Radius int     `msgpack:"radius,omitempty"`
}

// PatternNoise is the only background pattern.
const PatternNoise = "noise"

// BackgroundParams drives kernel.NoiseBackground.
type BackgroundParams struct {
	Pattern string       `msgpack:"pattern"`
	Width   int          `msgpack:"w"`
	Height  int          `msgpack:"h"`
	Palette []color.RGBA `msgpack:"palette"`
}

// Texture operations.
const (
	OpCrack = "crack"
	OpBurn  = "burn"
	OpFade  = "fade"
)

// TextureParams runs one texture post-process over Pix. Seed fixes the crack
// layout; zero picks one from the clock.
type TextureParams struct {
	Op        string  `msgpack:"op"`
	Width     int     `msgpack:"w"`
	Height    int     `msgpack:"h"`
	Pix       []byte  `msgpack:"pix"`
	Lines     int     `msgpack:"lines,omitempty"`
	LineWidth int     `msgpack:"lw,omitempty"`
	Intensity float64 `msgpack:"intensity,omitempty"`
	Alpha     float64 `msgpack:"alpha,omitempty"`
	Seed      int64   `msgpack:"seed,omitempty"`
}

// request and response are the only values that cross to the worker, and
// they cross as encoded bytes.
type request struct {
	Kind   Kind               `msgpack:"kind"`
	ID     string             `msgpack:"id"`
	Params msgpack.RawMessage `msgpack:"params"`
}

type response struct {
	Kind   Kind   `msgpack:"kind"`
	ID     string `msgpack:"id"`
	Width  int    `msgpack:"w"`
	Height int    `msgpack:"h"`
	Pix    []byte `msgpack:"pix,omitempty"`
	Frame  int    `msgpack:"frame,omitempty"`
	Err    string `msgpack:"err,omitempty"`
}

func encodeRequest(kind Kind, id string, params any) ([]byte, error) {
	raw, err := msgpack.Marshal(params)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&request{Kind: kind, ID: id, Params: raw})
}

func decodeResponse(b []byte) (response, error) {
	var resp response
	err := msgpack.Unmarshal(b, &resp)
	return resp, err
}
