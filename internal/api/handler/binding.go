package handler

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/reinieltalplacido/classalign/internal/timegrid"
)

var registerOnce sync.Once

// RegisterValidators 在 Gin 默认校验器上注册自定义 tag：
//
//	weekday  周一至周五，大小写与缩写不敏感（"mon"、"Thurs."）
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
			_, ok := timegrid.NormalizeWeekday(fl.Field().String())
			return ok
		})
	})
}
