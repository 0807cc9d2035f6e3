package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"carelistings/internal/auth"
	"carelistings/internal/config"
	"carelistings/internal/database"
	"carelistings/internal/listings"
)

func main() {
	var (
		username = flag.String("username", "", "初始管理员用户名（必填）")
		seed     = flag.Bool("seed", false, "同时写入示例职位与培训条目")
	)
	flag.Parse()

	u := strings.TrimSpace(*username)
	if u == "" {
		log.Fatal("missing required flag: --username")
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	var existing database.AdminUser
	switch err := db.Where("username = ?", u).First(&existing).Error; {
	case err == nil:
		log.Fatalf("user %q already exists", u)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.AdminUser{
		Username:     u,
		PasswordHash: hashed,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create user: %v", err)
	}

	if *seed {
		if err := seedListings(db); err != nil {
			log.Fatalf("seed listings: %v", err)
		}
		fmt.Println("示例职位与培训条目已写入。")
	}

	fmt.Printf("已创建管理员账号：\n")
	fmt.Printf("用户名: %s\n", u)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：该密码仅显示一次，请立即登录并妥善保存。\n")
}

// seedListings 通过仓储写入示例数据，不直连表，保证与 API 同一套校验。
func seedListings(db *gorm.DB) error {
	ctx := context.Background()
	jobs := listings.NewJobRepository(db, nil, nil)
	trainings := listings.NewTrainingRepository(db, nil, nil)

	if _, err := jobs.Create(ctx, listings.JobInput{
		Title:          "Caregiver",
		Location:       "Milwaukee, WI",
		Company:        "Serenity Home Care",
		EmploymentType: "Full-Time",
		Summary:        "Provide in-home personal care and companionship for clients.",
		Qualifications: listings.StringList{
			"Valid driver's license",
			"CPR certification",
		},
		Responsibilities: listings.StringList{
			"Assist clients with daily living activities",
			"Document and report changes in client condition",
		},
		ReportsTo: "Care Coordinator",
	}); err != nil {
		return fmt.Errorf("seed job: %w", err)
	}

	if _, err := trainings.Create(ctx, listings.TrainingInput{
		Title:               "CBRF Certification",
		Description:         "State-approved training for community-based residential facility staff.",
		Availability:        "Monthly cohorts",
		Duration:            "2 weeks",
		NotificationChannel: "cbrf-training",
		Price:               "$249",
		ClassHours:          "40 hours",
		Requirements: listings.StringList{
			"18 years or older",
			"High school diploma or equivalent",
		},
	}); err != nil {
		return fmt.Errorf("seed training: %w", err)
	}

	return nil
}

func generateRandomPassword(length int) (string, error) {
	if length <= 0 {
		length = 24
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}
