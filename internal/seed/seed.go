// Package seed 生成用于开发和演示的随机数据
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/service"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomOperator(password string, admin bool) (*domain.Operator, error) {
	username := GenerateUsernameFromChineseName(GenerateRandomChineseName())
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &domain.Operator{
		Username:     username,
		PasswordHash: string(passwordHash),
		IsAdmin:      admin,
	}, nil
}

var descriptions = []string{
	"束流调试", "例行巡检", "真空检漏", "电源维护", "机器研究", "用户实验",
}

var reports = []string{
	"运行正常，无异常", "束流中断两次，已恢复", "真空度偏高，已通知值班工程师", "完成交接",
}

// SeedShifts 从 from 开始依次为 typeName 生成 n 个已经结束的班次，其中大约一半会被关闭。
// 时间由模拟时钟推进，因此生成的数据同样满足同一类型只有一个进行中班次的约束。
func SeedShifts(ctx context.Context, st store.Store, typeName string, operators []string, n int, from time.Time) (int, error) {
	if len(operators) == 0 {
		return 0, fmt.Errorf("没有可用的操作员")
	}

	clock := from
	svc := service.NewShiftService(st, service.WithClock(func() time.Time { return clock }))
	pick := func() string { return operators[rand.Intn(len(operators))] }

	cnt := 0
	for i := 0; i < n; i++ {
		owner := pick()
		shift, err := svc.StartShift(ctx, owner, service.StartParams{
			Type:            typeName,
			Owner:           owner,
			Description:     descriptions[rand.Intn(len(descriptions))],
			LeadOperator:    pick(),
			OnShiftPersonal: pick() + ", " + pick(),
		})
		if err != nil {
			return cnt, err
		}

		// 每个班次持续 4 到 12 小时
		clock = clock.Add(time.Duration(rand.Intn(9)+4) * time.Hour)
		report := reports[rand.Intn(len(reports))]
		if _, err := svc.EndShift(ctx, owner, shift.ID, domain.ShiftPatch{Report: &report}); err != nil {
			return cnt, err
		}

		if rand.Intn(2) == 0 {
			if _, err := svc.CloseShift(ctx, pick(), shift.ID, domain.ShiftPatch{}); err != nil {
				return cnt, err
			}
		}

		clock = clock.Add(time.Duration(rand.Intn(60)+1) * time.Minute)
		cnt++
	}

	return cnt, nil
}
