package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Souma061/quizmaster/internal/domain"
	"github.com/Souma061/quizmaster/internal/errors"
	"github.com/Souma061/quizmaster/internal/event"
	"github.com/Souma061/quizmaster/internal/game"
	"github.com/Souma061/quizmaster/internal/history"
	"github.com/Souma061/quizmaster/internal/leaderboard"
	"github.com/Souma061/quizmaster/internal/trivia"
)

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Game         *game.Service
	Leaderboard  *leaderboard.Service
	History      *history.Service
	Categories   CategoryPicker
	Redis        Redis
	PubsubPrefix string
}

// CategoryPicker picks a surprise category not already offered to the player.
type CategoryPicker interface {
	SurpriseCategory(ctx context.Context, exclude map[int]bool) (trivia.Category, error)
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	gs  *game.Service
	ls  *leaderboard.Service
	hs  *history.Service
	cat CategoryPicker

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		gs:     c.Game,
		ls:     c.Leaderboard,
		hs:     c.History,
		cat:    c.Categories,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	v1 := c.Router.Group("/v1")
	v1.POST("/games", a.startGame)
	v1.GET("/games/:id", a.getGame)
	v1.POST("/games/:id/answer", a.selectOption)
	v1.POST("/games/:id/fifty-fifty", a.useFiftyFifty)
	v1.POST("/games/:id/skip", a.useSkip)
	v1.POST("/games/:id/next", a.next)
	v1.POST("/games/:id/score", a.saveScore)
	v1.DELETE("/games/:id", a.restart)
	v1.GET("/leaderboards/:scope", a.getBoard)
	v1.DELETE("/leaderboards/:scope", a.clearBoard)
	v1.GET("/categories/surprise", a.surpriseCategory)
	v1.GET("/history", a.listHistory)

	c.EventBus.Subscribe(domain.EventNameLeaderboardSaved, func(ctx context.Context, e event.Event) error {
		return a.PublishBoardSaved(ctx, e.(domain.EventLeaderboardSaved))
	})

	return a
}

type startGameRequest struct {
	Amount     int    `json:"amount" binding:"required,min=1,max=50"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=any easy medium hard"`
}

func (a *API) startGame(c *gin.Context) {
	var req startGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid start request"), errors.WithCause(err)))
		return
	}

	snap, err := a.gs.Start(c.Request.Context(), game.StartRequest{
		Amount:     req.Amount,
		Category:   req.Category,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snap)
}

func (a *API) getGame(c *gin.Context) {
	snap, err := a.gs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

type answerRequest struct {
	Option *int `json:"option" binding:"required,min=0"`
}

func (a *API) selectOption(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid answer request"), errors.WithCause(err)))
		return
	}

	snap, err := a.gs.SelectOption(c.Request.Context(), c.Param("id"), *req.Option)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) useFiftyFifty(c *gin.Context) {
	snap, err := a.gs.UseFiftyFifty(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) useSkip(c *gin.Context) {
	snap, err := a.gs.UseSkip(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) next(c *gin.Context) {
	snap, err := a.gs.Next(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

type saveScoreRequest struct {
	Name string `json:"name" binding:"required"`
}

func (a *API) saveScore(c *gin.Context) {
	var req saveScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid save request"), errors.WithCause(err)))
		return
	}

	snap, err := a.gs.SaveScore(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) restart(c *gin.Context) {
	a.gs.Restart(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (a *API) getBoard(c *gin.Context) {
	board := a.ls.Load(c.Request.Context(), boardKey(c.Param("scope")))
	c.JSON(http.StatusOK, boardView(board))
}

func (a *API) clearBoard(c *gin.Context) {
	if err := a.ls.Clear(c.Request.Context(), boardKey(c.Param("scope"))); err != nil {
		abortError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) surpriseCategory(c *gin.Context) {
	exclude := make(map[int]bool)
	if raw := c.Query("exclude"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				exclude[id] = true
			}
		}
	}

	cat, err := a.cat.SurpriseCategory(c.Request.Context(), exclude)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, cat)
}

func (a *API) listHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	games, err := a.hs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": games})
}

func boardKey(scope string) string {
	if scope == "global" {
		return leaderboard.GlobalKey()
	}
	return leaderboard.CategoryKey(scope)
}

func abortError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
