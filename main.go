// @title 视频标注平台后端 API
// @version 1.0
// @description 多人视频标注平台的后端服务器：标注提交、加权共识真值聚合、准确率统计与导出。
// @termsOfService http://swagger.io/terms/

// @contact.name API支持
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"
	"os"
	"video_label_backend/internal/app"
	"video_label_backend/internal/config"
	"video_label_backend/pkg/configwatcher"
	"video_label_backend/pkg/logger"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	// 配置热加载：仅覆盖可在运行期安全替换的字段
	const configFile = "configs/config.yaml"
	if _, err := os.Stat(configFile); err == nil {
		go configwatcher.WatchConfig(configFile, cfg, func(reloaded interface{}) {
			if updated, ok := reloaded.(*config.Config); ok {
				cfg.JWT = updated.JWT
				cfg.RateLimit = updated.RateLimit
				log.Println("配置已热加载")
			}
		})
	}

	application.Run()
}
