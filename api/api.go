package api

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/snake-classic/render"
	"github.com/hoshinonyaruko/snake-classic/session"
	"github.com/hoshinonyaruko/snake-classic/structs"
)

const defaultTopGames = 10

// Options 路由需要的外部依赖
type Options struct {
	Manager   *session.Manager
	Renderer  *render.Renderer
	StaticDir string // render-map 保存图片的目录
	SelfPath  string // 对外访问的地址，用于拼接图片 URL
}

// NewRouter wires every handler onto a gin engine.
func NewRouter(opts Options) *gin.Engine {
	router := gin.Default()

	// 新建一局
	router.POST("/games", CreateGame(opts.Manager))
	router.GET("/games/:id", GetGame(opts.Manager))
	router.DELETE("/games/:id", DeleteGame(opts.Manager))
	router.POST("/games/:id/start", StartGame(opts.Manager))
	router.POST("/games/:id/restart", RestartGame(opts.Manager))
	// 处理玩家改变方向
	router.POST("/games/:id/direction", UpdateDirection(opts.Manager))
	router.GET("/games/:id/frame.png", FrameHandler(opts.Manager, opts.Renderer))
	router.GET("/games/:id/ws", StreamHandler(opts.Manager))
	// 渲染函数 返回静态地址
	router.GET("/render-map", RenderMapHandler(opts.Manager, opts.Renderer, opts.StaticDir, opts.SelfPath))
	router.GET("/scores", ScoresHandler(opts.Manager))
	router.Static("/static", opts.StaticDir) // 静态文件服务
	return router
}

// lookup 取出路径里的会话，不存在时直接写 404
func lookup(c *gin.Context, m *session.Manager, id string) (*session.Session, bool) {
	s, ok := m.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no game with id %q", id)})
		return nil, false
	}
	return s, true
}

func CreateGame(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		autostart, err := strconv.ParseBool(c.DefaultQuery("autostart", "false"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "autostart must be a boolean"})
			return
		}
		s := m.Create(autostart)
		c.JSON(http.StatusCreated, gin.H{"id": s.ID, "state": s.State()})
	}
}

func GetGame(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, m, c.Param("id"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": s.ID, "state": s.State()})
	}
}

func DeleteGame(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !m.Remove(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no game with id %q", id)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Game deleted"})
	}
}

func StartGame(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, m, c.Param("id"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": s.ID, "state": s.Start()})
	}
}

func RestartGame(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, m, c.Param("id"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": s.ID, "state": s.Restart()})
	}
}

func UpdateDirection(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		newDirection := c.Query("direction")

		// 验证是否提供了必要的查询参数
		if newDirection == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: direction"})
			return
		}
		d, valid := structs.ParseDirection(strings.ToLower(newDirection))
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid direction '%s' provided", newDirection)})
			return
		}

		s, ok := lookup(c, m, c.Param("id"))
		if !ok {
			return
		}
		// 反方向或游戏已结束时 accepted 为 false，不算错误
		c.JSON(http.StatusOK, gin.H{"accepted": s.SetDirection(d)})
	}
}

// FrameHandler 直接返回 PNG
func FrameHandler(m *session.Manager, r *render.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, m, c.Param("id"))
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := r.EncodePNG(&buf, s.State()); err != nil {
			log.Printf("render %s: %v", s.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to render frame"})
			return
		}
		c.Data(http.StatusOK, "image/png", buf.Bytes())
	}
}

// RenderMapHandler 渲染并保存到静态目录，返回图片地址
func RenderMapHandler(m *session.Manager, r *render.Renderer, staticDir, selfPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required query parameter: id"})
			return
		}
		s, ok := lookup(c, m, id)
		if !ok {
			return
		}

		fileName := filepath.Join(staticDir, s.ID+".png")
		if err := r.SavePNG(fileName, s.State()); err != nil {
			log.Printf("render %s: %v", s.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to render map"})
			return
		}

		imageUrl := fmt.Sprintf("%s/static/%s.png", strings.TrimSuffix(selfPath, "/"), s.ID)
		c.JSON(http.StatusOK, gin.H{"image_url": imageUrl})
	}
}

// ScoresHandler 返回最高分和排行榜
func ScoresHandler(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTopGames)))
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}

		store := m.Store()
		highScore, err := store.LoadHighScore()
		if err != nil {
			log.Printf("load high score: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load high score"})
			return
		}
		games, err := store.TopGames(limit)
		if err != nil {
			log.Printf("load top games: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load games"})
			return
		}
		if games == nil {
			games = []structs.GameRecord{}
		}
		c.JSON(http.StatusOK, gin.H{"high_score": highScore, "games": games})
	}
}
