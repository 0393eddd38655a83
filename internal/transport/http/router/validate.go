package router

import (
	"slices"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"lostfound-api/internal/domain"
)

var registerOnce sync.Once

// registerValidators 给 gin 的 validator 引擎注册业务规则：
// category（物品分类）、curso（专业）、itemtype（lost/found）、role
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return domain.ValidCategory(fl.Field().String())
		})
		_ = v.RegisterValidation("curso", func(fl validator.FieldLevel) bool {
			return slices.Contains(domain.Cursos, fl.Field().String())
		})
		_ = v.RegisterValidation("itemtype", func(fl validator.FieldLevel) bool {
			return domain.ItemType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return domain.Role(fl.Field().String()).Valid()
		})
	})
}
