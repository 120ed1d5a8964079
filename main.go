package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"arenaclient/sprites"
)

var (
	baseDir string
	dataDir string
)

func main() {
	var flags launchOptions
	flag.StringVar(&flags.Server, "server", "", "websocket URL of the game server")
	flag.StringVar(&flags.Lobby, "lobby", "", "lobby to join")
	flag.StringVar(&flags.Name, "name", "", "player name")
	debugFlag := flag.Bool("debug", false, "verbose/debug logging")
	noWorker := flag.Bool("no-worker", false, "run pixel kernels on the frame loop goroutine")
	flag.Parse()

	baseDir = os.Getenv("PWD")
	if baseDir == "" {
		var err error
		if baseDir, err = os.Getwd(); err != nil {
			log.Fatalf("get working directory: %v", err)
		}
	}
	dataDir = filepath.Join(baseDir, "data")

	loadSettings()
	setupLogging(*debugFlag || gs.Debug)
	defer func() {
		if r := recover(); r != nil {
			logError("panic: %v\n%s", r, debug.Stack())
		}
	}()
	if *noWorker {
		gs.DisableWorker = true
	}

	opts := flags.merge(loadEnv()).merge(launchOptions{Server: gs.ServerURL})

	id, err := loadIdentity(identityPath(), rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	if err != nil {
		logError("identity: %v", err)
	}
	if opts.Lobby != "" {
		id.LobbyID = opts.Lobby
	}
	if opts.Name != "" {
		id.PlayerName = opts.Name
	}
	if id.LobbyID == "" {
		fmt.Fprintln(os.Stderr, "no lobby to join; pass -lobby or set ARENA_LOBBY")
		os.Exit(2)
	}
	if err := saveIdentity(identityPath(), id); err != nil {
		logError("save identity: %v", err)
	}
	logDebug("player %s joining lobby %s at %s", id.PlayerID, id.LobbyID, opts.Server)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	initFont()
	initSoundContext()
	loadSounds(dataDir)
	set := sprites.Load(os.DirFS(dataDir), sprites.All, 0, logWarn)
	go func() {
		<-set.Done()
		done, total := set.Progress()
		logDebug("sprites loaded: %d/%d, %d missing", done, total, len(set.Missing()))
	}()

	runGame(ctx, gameOptions{
		URL:          opts.Server,
		Identity:     id,
		IdentityPath: identityPath(),
		Sprites:      set,
	})
}
