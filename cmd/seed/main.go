package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var types string
	var typeName string
	var days int

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机操作员, 2: 插入班次类型, 3: 插入随机班次记录)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&types, "types", "linac,booster,storage-ring", "要插入的班次类型，以逗号分隔")
	flag.StringVar(&typeName, "type", "linac", "随机班次记录所属的类型")
	flag.IntVar(&days, "days", 30, "随机班次记录从多少天前开始")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		logger.Error("未指定操作")
	case 1:
		if n <= 0 {
			logger.Error("请输入合法的操作员数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			operator, err := seed.GenerateRandomOperator(cfg.Seed.Operator.Password, false)
			if err != nil {
				logger.Error("无法生成随机操作员", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateOperator(context.Background(), operator); err != nil {
				logger.Error("无法插入操作员", slog.String("username", operator.Username), slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		logger.Info("插入操作员成功", slog.Int("count", cnt))
	case 2:
		cnt := 0
		for _, name := range strings.Split(types, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			if err := repo.CreateType(context.Background(), &domain.Type{Name: name}); err != nil {
				logger.Error("无法插入班次类型", slog.String("name", name), slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		logger.Info("插入班次类型成功", slog.Int("count", cnt))
	case 3:
		if n <= 0 {
			logger.Error("请输入合法的班次数量")
			return
		}

		operators := make([]string, 0, 5)
		for i := 0; i < 5; i++ {
			operators = append(operators, seed.GenerateUsernameFromChineseName(seed.GenerateRandomChineseName()))
		}

		from := time.Now().UTC().AddDate(0, 0, -days)
		cnt, err := seed.SeedShifts(context.Background(), repo, typeName, operators, n, from)
		if err != nil {
			logger.Error("无法插入班次记录", slog.Int("inserted", cnt), slog.String("error", err.Error()))
			return
		}

		logger.Info("插入班次记录成功", slog.Int("count", cnt))
	default:
		logger.Error("指定的操作非法")
	}
}
