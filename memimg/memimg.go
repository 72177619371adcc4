// 贴图缓存：把目录里的图片缩放到格子大小后放在内存里，文件变化时热更新
package memimg

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
)

// Cache 以文件名（不含扩展名）为 key 保存缩放好的贴图
type Cache struct {
	blockSize int

	mu      sync.RWMutex
	sprites map[string]image.Image
}

func NewCache(blockSize int) *Cache {
	return &Cache{
		blockSize: blockSize,
		sprites:   make(map[string]image.Image),
	}
}

// Load 读取目录下所有图片。目录不存在时什么都不做。
func (c *Cache) Load(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isImage(path) {
			return nil
		}
		if err := c.loadFile(path); err != nil {
			// 单个坏文件不影响其它贴图
			log.Printf("memimg: skip %s: %v", path, err)
		}
		return nil
	})
}

func (c *Cache) loadFile(path string) error {
	img, err := LoadImage(path)
	if err != nil {
		return err
	}
	scaled := imaging.Resize(img, c.blockSize, c.blockSize, imaging.Lanczos)
	c.mu.Lock()
	c.sprites[spriteName(path)] = scaled
	c.mu.Unlock()
	return nil
}

// LoadImage decodes a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Watch reloads sprites in directory when files are written or created and
// drops them when removed. It blocks until ctx is done.
func (c *Cache) Watch(ctx context.Context, directory string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(directory); err != nil {
		return fmt.Errorf("watch %s: %w", directory, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isImage(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				if err := c.loadFile(event.Name); err != nil {
					log.Printf("memimg: reload %s: %v", event.Name, err)
				}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				c.mu.Lock()
				delete(c.sprites, spriteName(event.Name))
				c.mu.Unlock()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println("memimg: watch error:", err)
		}
	}
}

// Get 取出贴图，name 不含扩展名，例如 "food"
func (c *Cache) Get(name string) (image.Image, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	img, exists := c.sprites[name]
	c.mu.RUnlock()
	return img, exists
}

// Len 返回已加载的贴图数量
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sprites)
}

func spriteName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
