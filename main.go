package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/hoshinonyaruko/snake-classic/api"
	"github.com/hoshinonyaruko/snake-classic/config"
	"github.com/hoshinonyaruko/snake-classic/driver"
	"github.com/hoshinonyaruko/snake-classic/memimg"
	"github.com/hoshinonyaruko/snake-classic/postgres"
	"github.com/hoshinonyaruko/snake-classic/render"
	"github.com/hoshinonyaruko/snake-classic/session"
	"github.com/hoshinonyaruko/snake-classic/snake"
	"github.com/hoshinonyaruko/snake-classic/sqlite"
	"github.com/hoshinonyaruko/snake-classic/term"
)

const staticDir = "static"

func main() {
	configPath := flag.String("config", "./config.json", "path to config.json")
	mode := flag.String("mode", "http", `"http" to serve the API, "term" to play in the terminal`)
	flag.Parse()

	// 错误在 run 里的 defer 全部执行之后才退出
	if err := run(*configPath, *mode); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, mode string) error {
	// Initialize the configuration
	cfg := config.LoadConfig(configPath)

	cadence, err := driver.ParseCadence(cfg.Cadence)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store := openStorage(cfg)
	defer store.Close()

	opts := snake.Options{
		GridSize:   cfg.GridSize,
		BaseSpeed:  cfg.Speed(),
		SpeedFloor: cfg.Floor(),
		SpeedStep:  cfg.Step(),
	}
	manager := session.NewManager(opts, driver.Driver{Cadence: cadence, FPS: cfg.FPS}, store)
	defer manager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "term":
		return runTerm(ctx, manager)
	case "http":
		return runHTTP(ctx, cfg, manager)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// openStorage 按配置打开存储，失败时退回内存，最高分只在本进程有效
func openStorage(cfg *config.AppConfig) session.Storage {
	var (
		store session.Storage
		err   error
	)
	switch cfg.Storage {
	case "postgres":
		store, err = postgres.Open(cfg.DatabaseURL, snake.HighScoreKey)
		log.Println("Using PostgreSQL persistence")
	case "sqlite":
		store, err = sqlite.Open(cfg.DBPath, snake.HighScoreKey)
		log.Println("Using sqlite persistence")
	default:
		log.Println("Using in-memory persistence")
		return session.NewMemoryStore()
	}
	if err != nil {
		log.Printf("Failed to initialize persistence, high scores will not survive a restart: %v", err)
		return session.NewMemoryStore()
	}
	return store
}

func runHTTP(ctx context.Context, cfg *config.AppConfig, manager *session.Manager) error {
	if err := EnsureFoldersExist(staticDir, cfg.SpritesDir); err != nil {
		return err
	}

	// 载入贴图到内存
	sprites := memimg.NewCache(cfg.Blocksize)
	if err := sprites.Load(cfg.SpritesDir); err != nil {
		log.Printf("Failed to load sprites: %v", err)
	}
	// 检测并热更新到内存
	go func() {
		if err := sprites.Watch(ctx, cfg.SpritesDir); err != nil {
			log.Printf("Sprite watcher stopped: %v", err)
		}
	}()

	router := api.NewRouter(api.Options{
		Manager:   manager,
		Renderer:  render.New(cfg.Blocksize, sprites),
		StaticDir: staticDir,
		SelfPath:  cfg.SelfPath,
	})

	errc := make(chan error, 1)
	go func() {
		// 从配置读取端口 监听
		errc <- router.Run(":" + cfg.Port)
	}()
	select {
	case err := <-errc:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
		log.Println("Shutting down")
		return nil
	}
}

func runTerm(ctx context.Context, manager *session.Manager) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to init screen: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	// 终端里日志会破坏画面，写到文件
	logFile, err := os.OpenFile("snake-term.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
		defer func() {
			log.SetOutput(os.Stderr)
			logFile.Close()
		}()
	}

	shell := term.NewShell(screen, manager.Create(false))
	return shell.Run(ctx)
}

// EnsureFoldersExist 检查并创建必需的文件夹
func EnsureFoldersExist(folders ...string) error {
	for _, folder := range folders {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			// 文件夹不存在，尝试创建它
			err := os.MkdirAll(folder, 0755) // 使用0755权限以确保读写权限
			if err != nil {
				// 如果创建失败，交给调用方处理
				return fmt.Errorf("failed to create %s directory: %w", folder, err)
			}
			log.Printf("Created %s directory", folder)
		} else {
			// 文件夹已存在
			log.Printf("%s directory already exists", folder)
		}
	}
	return nil
}
