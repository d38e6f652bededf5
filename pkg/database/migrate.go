package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrator migrate.Migrate 中 RunMigrations 用到的部分
type migrator interface {
	Up() error
	Version() (uint, bool, error)
}

// RunMigrations 执行 migrations/ 下所有未应用的迁移。
// 库处于 dirty 状态时不会继续执行，返回的错误中带有需要人工处理的版本号。
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	versions, err := upVersions(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return applyMigrations(m, versions, logger)
}

func applyMigrations(m migrator, versions []uint, logger *zap.Logger) error {
	from, err := currentVersion(m)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		var dirty migrate.ErrDirty
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			logger.Info("数据库已是最新版本", zap.Uint("version", from))
			return nil
		case errors.As(err, &dirty):
			return dirtyError(uint(dirty.Version))
		default:
			return fmt.Errorf("执行迁移失败 (起始版本 %d): %w", from, err)
		}
	}

	to, err := currentVersion(m)
	if err != nil {
		return err
	}
	logger.Info("数据库迁移完成",
		zap.Uint("from", from),
		zap.Uint("to", to),
		zap.Int("applied", countApplied(versions, from, to)),
	)
	return nil
}

// currentVersion 空库返回 0；dirty 状态直接报错
func currentVersion(m migrator) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		return 0, dirtyError(version)
	}
	return version, nil
}

// dirtyError 提示运维回退到上一个完整版本后重试
func dirtyError(version uint) error {
	force := 0
	if version > 0 {
		force = int(version) - 1
	}
	return fmt.Errorf("数据库迁移版本 %d 处于 dirty 状态，请修复后执行 migrate force %d: %w",
		version, force, migrate.ErrDirty{Version: int(version)})
}

// upVersions 列出 dir 下 *.up.sql 的版本号（升序）
func upVersions(fsys fs.FS, dir string) ([]uint, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("读取迁移目录失败: %w", err)
	}
	var versions []uint
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("迁移文件名缺少版本前缀: %s", name)
		}
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("迁移文件版本号非法 %s: %w", name, err)
		}
		versions = append(versions, uint(v))
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// countApplied 统计 (from, to] 区间内的迁移数
func countApplied(versions []uint, from, to uint) int {
	n := 0
	for _, v := range versions {
		if v > from && v <= to {
			n++
		}
	}
	return n
}
