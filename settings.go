package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/joho/godotenv"
)

type Settings struct {
	ServerURL        string  `json:"serverURL"`
	Scale            int     `json:"scale"`
	Vsync            bool    `json:"vsync"`
	Particles        bool    `json:"particles"`
	ParticleCount    int     `json:"particleCount"`
	Workers          int     `json:"workers"`
	DisableWorker    bool    `json:"disableWorker"`
	ComputeTimeoutMS int     `json:"computeTimeoutMS"`
	Volume           float64 `json:"volume"`
	Presence         bool    `json:"presence"`
	PresenceAppID    string  `json:"presenceAppID"`
	// Theme is "dark", "light" or empty to follow the OS.
	Theme string `json:"theme"`
	Debug bool   `json:"debug"`
}

var gsdef = Settings{
	ServerURL:        "ws://localhost:8080/ws",
	Scale:            1,
	Vsync:            true,
	Particles:        true,
	ParticleCount:    15,
	ComputeTimeoutMS: 1000,
	Volume:           0.35,
}

var (
	gs               = gsdef
	settingsDirty    bool
	lastSettingsSave time.Time
)

const settingsFile = "settings.json"

func loadSettings() bool {
	data, err := os.ReadFile(filepath.Join(baseDir, settingsFile))
	if err != nil {
		return false
	}
	s := gsdef
	if err := json.Unmarshal(data, &s); err != nil {
		logWarn("settings: %v", err)
		return false
	}
	if s.Scale < 1 {
		s.Scale = 1
	}
	if s.ParticleCount <= 0 {
		s.ParticleCount = gsdef.ParticleCount
	}
	if s.ComputeTimeoutMS <= 0 {
		s.ComputeTimeoutMS = gsdef.ComputeTimeoutMS
	}
	if s.Volume < 0 || s.Volume > 1 {
		s.Volume = gsdef.Volume
	}
	gs = s
	return true
}

func applySettings() {
	ebiten.SetVsyncEnabled(gs.Vsync)
	ebiten.SetWindowSize(screenWidth*gs.Scale, screenHeight*gs.Scale)
}

func saveSettings() {
	data, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		logError("save settings: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(baseDir, settingsFile), data, 0644); err != nil {
		logError("save settings: %v", err)
	}
}

// toggleDebug flips debug logging and the debug overlay and persists the
// choice on the next flush.
func toggleDebug() {
	gs.Debug = !gs.Debug
	setDebugLogging(gs.Debug)
	settingsDirty = true
}

// flushSettings writes dirty settings at most every five seconds.
func flushSettings(now time.Time) {
	if now.Sub(lastSettingsSave) < 5*time.Second {
		return
	}
	if settingsDirty {
		saveSettings()
		settingsDirty = false
	}
	lastSettingsSave = now
}

// launchOptions are per-run choices that are not persisted.
type launchOptions struct {
	Server string
	Lobby  string
	Name   string
}

// loadEnv reads .env from the base dir, if present, and returns the ARENA_*
// overrides. Variables already set in the environment win over the file.
func loadEnv() launchOptions {
	if err := godotenv.Load(filepath.Join(baseDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logWarn("load .env: %v", err)
	}
	return launchOptions{
		Server: os.Getenv("ARENA_SERVER"),
		Lobby:  os.Getenv("ARENA_LOBBY"),
		Name:   os.Getenv("ARENA_PLAYER_NAME"),
	}
}

// merge fills empty fields of o from fallback.
func (o launchOptions) merge(fallback launchOptions) launchOptions {
	if o.Server == "" {
		o.Server = fallback.Server
	}
	if o.Lobby == "" {
		o.Lobby = fallback.Lobby
	}
	if o.Name == "" {
		o.Name = fallback.Name
	}
	return o
}
