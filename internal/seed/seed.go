// Package seed 导入/清空开发数据。数据文件沿用导出格式：主键在 "_id"，
// 团的向导在 "guides"，评价用 "tour"/"user" 关联。
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"natours/internal/domain"
	"natours/pkg/utils"
)

// DefaultPassword 数据文件里没有密码时使用
const DefaultPassword = "test1234"

type Data struct {
	Users   []domain.User
	Tours   []domain.Tour
	Reviews []domain.Review
}

func idOf(item gjson.Result) string {
	if id := item.Get("_id").String(); id != "" {
		return id
	}
	if id := item.Get("id").String(); id != "" {
		return id
	}
	return utils.NewID()
}

func each(raw []byte, name string, fn func(gjson.Result) error) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%s: invalid json", name)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return fmt.Errorf("%s: expected an array", name)
	}
	var err error
	doc.ForEach(func(_, item gjson.Result) bool {
		err = fn(item)
		return err == nil
	})
	return err
}

// ParseUsers 密码明文在这里哈希；缺省角色 user，缺省启用
func ParseUsers(raw []byte) ([]domain.User, error) {
	var out []domain.User
	err := each(raw, "users", func(item gjson.Result) error {
		pw := item.Get("password").String()
		if pw == "" {
			pw = DefaultPassword
		}
		hash, err := utils.HashPassword(pw)
		if err != nil {
			return err
		}
		u := domain.User{
			ID:           idOf(item),
			Name:         item.Get("name").String(),
			Email:        strings.ToLower(strings.TrimSpace(item.Get("email").String())),
			Photo:        item.Get("photo").String(),
			Role:         domain.Role(item.Get("role").String()),
			PasswordHash: hash,
			Active:       !item.Get("active").Exists() || item.Get("active").Bool(),
		}
		if u.Role == "" {
			u.Role = domain.RoleUser
		}
		if u.Photo == "" {
			u.Photo = "default.jpg"
		}
		if !u.Role.Valid() {
			return fmt.Errorf("users: %s has unknown role %q", u.Email, u.Role)
		}
		out = append(out, u)
		return nil
	})
	return out, err
}

// ParseTours 普通字段按 JSON tag 解码，id/guides/slug 单独处理
func ParseTours(raw []byte) ([]domain.Tour, error) {
	var out []domain.Tour
	err := each(raw, "tours", func(item gjson.Result) error {
		// guides 是 id 数组，startDates 可能是 "2021-04-25,10:00"，都不能直接解到 domain.Tour
		var aux struct {
			domain.Tour
			Guides     []string `json:"guides"`
			StartDates []string `json:"startDates"`
		}
		if err := json.Unmarshal([]byte(item.Raw), &aux); err != nil {
			return fmt.Errorf("tours: %w", err)
		}
		t := aux.Tour
		t.ID = idOf(item)
		t.Name = strings.TrimSpace(t.Name)
		t.Slug = utils.Slugify(t.Name)
		t.GuideIDs = aux.Guides
		for _, raw := range aux.StartDates {
			d, err := parseDate(raw)
			if err != nil {
				return fmt.Errorf("tours: %s: %w", t.Name, err)
			}
			t.StartDates = append(t.StartDates, d)
		}
		if t.RatingsAverage == 0 {
			t.RatingsAverage = domain.DefaultRatingsAverage
		}
		t.StartLocation.Type = "Point"
		for i := range t.Locations {
			t.Locations[i].Type = "Point"
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02,15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid start date %q", raw)
}

func ParseReviews(raw []byte) ([]domain.Review, error) {
	var out []domain.Review
	err := each(raw, "reviews", func(item gjson.Result) error {
		out = append(out, domain.Review{
			ID:     idOf(item),
			Review: item.Get("review").String(),
			Rating: item.Get("rating").Float(),
			TourID: item.Get("tour").String(),
			UserID: item.Get("user").String(),
		})
		return nil
	})
	return out, err
}

// Load 读取 dir 下的 users.json / tours.json / reviews.json，缺失的文件跳过
func Load(dir string) (*Data, error) {
	read := func(name string) ([]byte, error) {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			return nil, nil
		}
		return raw, err
	}
	d := &Data{}
	if raw, err := read("users.json"); err != nil {
		return nil, err
	} else if raw != nil {
		if d.Users, err = ParseUsers(raw); err != nil {
			return nil, err
		}
	}
	if raw, err := read("tours.json"); err != nil {
		return nil, err
	} else if raw != nil {
		if d.Tours, err = ParseTours(raw); err != nil {
			return nil, err
		}
	}
	if raw, err := read("reviews.json"); err != nil {
		return nil, err
	} else if raw != nil {
		if d.Reviews, err = ParseReviews(raw); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Import 一个事务里写入；评分聚合交给调用方重算
func Import(ctx context.Context, db *gorm.DB, d *Data, l *zap.Logger) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(d.Users) > 0 {
			if err := tx.Omit(clause.Associations).Create(&d.Users).Error; err != nil {
				return fmt.Errorf("users: %w", err)
			}
		}
		if len(d.Tours) > 0 {
			if err := tx.Omit(clause.Associations).Create(&d.Tours).Error; err != nil {
				return fmt.Errorf("tours: %w", err)
			}
		}
		if len(d.Reviews) > 0 {
			if err := tx.Omit(clause.Associations).Create(&d.Reviews).Error; err != nil {
				return fmt.Errorf("reviews: %w", err)
			}
		}
		l.Info("data imported",
			zap.Int("users", len(d.Users)), zap.Int("tours", len(d.Tours)), zap.Int("reviews", len(d.Reviews)))
		return nil
	})
}

// Delete 清空全部业务表，按外键依赖倒序
func Delete(ctx context.Context, db *gorm.DB, l *zap.Logger) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, m := range []any{&domain.Booking{}, &domain.Review{}, &domain.Tour{}, &domain.User{}} {
			if err := all.Delete(m).Error; err != nil {
				return err
			}
		}
		l.Info("data deleted")
		return nil
	})
}
