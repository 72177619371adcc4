package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// AppConfig holds the structure of the configuration
type AppConfig struct {
	SelfPath    string `json:"selfpath"`
	Port        string `json:"port"`
	Blocksize   int    `json:"blocksize"`   // 每个格子的像素
	GridSize    int    `json:"gridsize"`    // 棋盘边长（格）
	GameSpeed   int    `json:"gamespeed"`   // 初始刷新间隔，毫秒
	SpeedFloor  int    `json:"speedfloor"`  // 难度递增的下限，毫秒
	SpeedStep   int    `json:"speedstep"`   // 每吃一个食物减少的毫秒数，0 为固定速度
	Cadence     string `json:"cadence"`     // "interval" 或 "accumulate"
	FPS         int    `json:"fps"`         // accumulate 模式下的帧率
	Storage     string `json:"storage"`     // "sqlite", "postgres" 或 "memory"
	DBPath      string `json:"dbpath"`      // sqlite 文件
	DatabaseURL string `json:"databaseurl"` // postgres 连接串
	SpritesDir  string `json:"spritesdir"`  // 食物、蛇头贴图目录
}

var (
	instance *AppConfig
	once     sync.Once
)

// Default returns the classic 20x20 board at 130ms per tick.
func Default() *AppConfig {
	return &AppConfig{
		SelfPath:    "http://www.example.com", // Default value
		Port:        "38870",                  // Default value
		Blocksize:   20,
		GridSize:    20,
		GameSpeed:   130,
		SpeedFloor:  130,
		SpeedStep:   0,
		Cadence:     "interval",
		FPS:         60,
		Storage:     "sqlite",
		DBPath:      "game.db",
		DatabaseURL: "host=localhost user=snake password=snake dbname=snake sslmode=disable",
		SpritesDir:  "./sprites",
	}
}

// LoadConfig initializes and returns the instance of AppConfig
func LoadConfig(filePath string) *AppConfig {
	once.Do(func() {
		cfg, err := Load(filePath)
		if err != nil {
			panic(err)
		}
		instance = cfg
	})
	return instance
}

// Load reads filePath, writing the defaults there first when it does not
// exist, then applies environment overrides.
func Load(filePath string) (*AppConfig, error) {
	cfg := Default()
	// Load the config file if it exists, otherwise create one
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := saveConfig(filePath, cfg); err != nil {
			return nil, err
		}
	} else if err := loadConfig(filePath, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfig loads the settings from the file
func loadConfig(filePath string, cfg *AppConfig) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", filePath, err)
	}
	return nil
}

// saveConfig saves the current settings to the file
func saveConfig(filePath string, cfg *AppConfig) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// 环境变量优先于配置文件
func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("SNAKE_STORAGE"); v != "" {
		cfg.Storage = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
}

// Validate 检查配置是否可用
func (c *AppConfig) Validate() error {
	if c.GridSize < 2 {
		return fmt.Errorf("gridsize must be at least 2, got %d", c.GridSize)
	}
	if c.Blocksize < 4 {
		return fmt.Errorf("blocksize must be at least 4, got %d", c.Blocksize)
	}
	if c.GameSpeed <= 0 {
		return fmt.Errorf("gamespeed must be positive, got %d", c.GameSpeed)
	}
	if c.SpeedStep < 0 {
		return fmt.Errorf("speedstep must not be negative, got %d", c.SpeedStep)
	}
	switch c.Storage {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	switch c.Cadence {
	case "", "interval", "accumulate":
	default:
		return fmt.Errorf("unknown cadence %q", c.Cadence)
	}
	return nil
}

// Speed 初始刷新间隔
func (c *AppConfig) Speed() time.Duration {
	return time.Duration(c.GameSpeed) * time.Millisecond
}

// Floor 难度递增的下限
func (c *AppConfig) Floor() time.Duration {
	return time.Duration(c.SpeedFloor) * time.Millisecond
}

// Step 每吃一个食物减少的间隔
func (c *AppConfig) Step() time.Duration {
	return time.Duration(c.SpeedStep) * time.Millisecond
}
