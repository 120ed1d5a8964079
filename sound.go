package main

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

const (
	maxSounds  = 16
	sampleRate = 44100

	// ambientDuck is the ambient volume factor while an explosion plays.
	ambientDuck = 0.3
)

var (
	soundMu      sync.Mutex
	audioContext *audio.Context
	soundPlayers = make(map[*audio.Player]struct{})

	explosionPCM []byte
	ambient      *audio.Player

	playSound = func(pcm []byte, volume float64) {
		if pcm == nil || audioContext == nil {
			return
		}
		p := audioContext.NewPlayerFromBytes(pcm)
		p.SetVolume(volume)

		soundMu.Lock()
		for sp := range soundPlayers {
			if !sp.IsPlaying() {
				sp.Close()
				delete(soundPlayers, sp)
			}
		}
		if maxSounds > 0 && len(soundPlayers) >= maxSounds {
			soundMu.Unlock()
			p.Close()
			return
		}
		soundPlayers[p] = struct{}{}
		soundMu.Unlock()

		p.Play()
	}
)

func initSoundContext() {
	audioContext = audio.NewContext(sampleRate)
}

// loadSounds decodes the explosion cue and starts the ambient loop. Either
// file may be missing; the game is silent for that sound.
func loadSounds(dir string) {
	if audioContext == nil {
		return
	}
	pcm, err := loadWav(filepath.Join(dir, "audio", "explode.wav"))
	if err != nil {
		logWarn("explosion sound: %v", err)
	}
	explosionPCM = pcm
	if err := startAmbient(filepath.Join(dir, "audio", "Background.ogg")); err != nil {
		logWarn("background music: %v", err)
	}
}

func loadWav(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	stream, err := wav.DecodeWithSampleRate(audioContext.SampleRate(), f)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(stream)
}

func startAmbient(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	stream, err := vorbis.DecodeWithSampleRate(audioContext.SampleRate(), f)
	if err != nil {
		f.Close()
		return err
	}
	p, err := audioContext.NewPlayer(audio.NewInfiniteLoop(stream, stream.Length()))
	if err != nil {
		f.Close()
		return err
	}
	p.SetVolume(gs.Volume)
	p.Play()
	ambient = p
	return nil
}

// duckAmbient lowers the ambient loop under an explosion; restoreAmbient
// brings it back.
func duckAmbient() {
	if ambient != nil {
		ambient.SetVolume(gs.Volume * ambientDuck)
	}
}

func restoreAmbient() {
	if ambient != nil {
		ambient.SetVolume(gs.Volume)
	}
}
