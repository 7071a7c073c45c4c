package imagegen

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chengmaomao/sendblessings/internal/config"
)

const maxReferenceImageBytes = 5 << 20

// LoadReferenceImages reads the configured reference images and returns them
// as data-URI encoded strings, capped at the configured maximum. Missing or
// unreadable files are skipped with a warning; the feature is best-effort.
func LoadReferenceImages(cfg config.ReferenceConfig, log *slog.Logger) []string {
	if !cfg.Enabled || len(cfg.Paths) == 0 {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}

	var encoded []string
	for _, path := range cfg.Paths {
		if len(encoded) >= cfg.MaxImages {
			break
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Skipping unreadable reference image", "path", path, "error", err)
			continue
		}
		if len(data) > maxReferenceImageBytes {
			log.Warn("Reference image is large, consider compressing it", "path", path, "size_mb", float64(len(data))/(1<<20))
		}

		encoded = append(encoded, fmt.Sprintf("data:%s;base64,%s", mimeTypeForPath(path), base64.StdEncoding.EncodeToString(data)))
	}

	if len(encoded) > 0 {
		log.Info("Loaded reference images", "count", len(encoded))
	}
	return encoded
}

func mimeTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// BuildPrompt assembles the image generation prompt. When reference images
// are supplied the prompt asks the model to keep the referenced subject and
// fold it into the festival scene.
func BuildPrompt(holidayName, blessing string, hasReference bool) string {
	excerpt := blessing
	if runes := []rune(excerpt); len(runes) > 50 {
		excerpt = string(runes[:50]) + "..."
	}

	base := fmt.Sprintf("%s 节日祝福海报，温暖喜庆风格，包含文字：%s，节日元素如灯笼/花朵/雪花等，高质量，卡通插画风格，节日氛围浓厚，中文文字清晰可见", holidayName, excerpt)
	if !hasReference {
		return base
	}
	return fmt.Sprintf("请基于提供的参考图片中的人物、场景和元素，创作%s。保持参考图中人物的特征和风格，将其融入到节日场景中，确保画面和谐统一。", base)
}
