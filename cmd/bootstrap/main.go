// Package main 初始化数据库、管理员账号与首个 API Key
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"cloudeasyml-api/internal/application/apikey"
	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// bootstrap 总是同步表结构
	cfg.Database.AutoMigrate = true

	ctx := context.Background()

	// 2. 初始化数据层（仅数据库）
	dataLayer, cleanup, err := wire.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 创建首个管理员
	adminEmail := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@cloudeasyml.local"
	}
	adminPassword := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123" // 生产环境请务必通过环境变量设置
	}

	admin, err := dataLayer.UserRepo.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("failed to check admin existence: %v", err)
	}

	if admin == nil {
		fmt.Printf("Creating admin user: %s...\n", adminEmail)
		admin = entity.NewUser(adminEmail, "System Admin")
		admin.Role = entity.UserRoleAdmin
		if err := admin.SetPassword(adminPassword); err != nil {
			log.Fatalf("failed to hash admin password: %v", err)
		}
		if err := dataLayer.UserRepo.Create(ctx, admin); err != nil {
			log.Fatalf("failed to create admin user: %v", err)
		}
		fmt.Printf("Admin user created successfully.\n")
	} else {
		fmt.Printf("Admin user %s already exists.\n", adminEmail)
	}

	// 4. 为管理员签发 API Key
	keys, err := dataLayer.APIKeyRepo.ListByUser(ctx, admin.ID)
	if err != nil {
		log.Fatalf("failed to list admin api keys: %v", err)
	}
	if len(keys) > 0 {
		fmt.Printf("Admin already has %d API key(s), skipping issuance.\n", len(keys))
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	manager := apikey.NewManager(dataLayer.APIKeyRepo, &cfg.Security.APIKeys)
	fullKey, key, err := manager.GenerateKey(ctx, apikey.GenerateRequest{
		UserID: admin.ID,
		Name:   "bootstrap",
		Permissions: map[string]bool{
			entity.PermissionPredict: true,
			entity.PermissionDeploy:  true,
		},
	})
	if err != nil {
		log.Fatalf("failed to issue admin api key: %v", err)
	}

	fmt.Printf("API key %s issued (rate limit %d). Save it now, it won't be shown again:\n", key.KeyID, key.RateLimit)
	fmt.Println(fullKey)
	fmt.Println("Bootstrap completed successfully.")
}
