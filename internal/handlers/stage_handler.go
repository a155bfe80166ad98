// doc-flow/internal/handlers/stage_handler.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/colaisr/doc-flow/config"
	"github.com/colaisr/doc-flow/models"
)

const stagesCacheKey = "stages:all"

// ListStagesHandler returns the pipeline. Stages change rarely, so the list
// sits in the cache for an hour; the manual stage editor busts it on write.
func ListStagesHandler(c *gin.Context) {
	if config.RDB != nil {
		cached, err := config.RDB.Get(config.Ctx, stagesCacheKey).Result()
		if err == nil {
			var stages []models.LeadStage
			if json.Unmarshal([]byte(cached), &stages) == nil {
				c.JSON(http.StatusOK, stages)
				return
			}
		} else if err != redis.Nil {
			slog.Error("Redis GET failed", "key", stagesCacheKey, "error", err)
		}
	}

	var stages []models.LeadStage
	if err := config.DB.Where("is_archived = ?", false).
		Order("sort_order ASC").Find(&stages).Error; err != nil {
		respondError(c, err)
		return
	}

	if config.RDB != nil {
		if data, err := json.Marshal(stages); err == nil {
			if err := config.RDB.Set(config.Ctx, stagesCacheKey, data, time.Hour).Err(); err != nil {
				slog.Warn("Failed to cache stages", "error", err)
			}
		}
	}
	c.JSON(http.StatusOK, stages)
}
