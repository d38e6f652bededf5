package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Chacatphol/FlowO/internal/schedule"
	"github.com/Chacatphol/FlowO/pkg/response"
)

// 自定义校验标签
const (
	clockTag    = "hhmm"     // 严格 HH:MM
	notBlankTag = "notblank" // 去除空白后非空
)

// RegisterValidators 向 gin 的 binding 引擎注册自定义校验，并让错误信息使用 JSON 字段名
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("binding 引擎不是 validator/v10")
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(clockTag, clockValidation); err != nil {
		return err
	}
	return v.RegisterValidation(notBlankTag, notBlankValidation)
}

func clockValidation(fl validator.FieldLevel) bool {
	_, err := schedule.ParseClock(fl.Field().String())
	return err == nil
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// bindingDetails 将校验错误整理为 "field:tag" 列表，其他错误原样返回
// rejectOversizedBody 请求体超过 BodyLimit 上限时返回 413
func rejectOversizedBody(c *gin.Context, err error) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
	return true
}

func bindingDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+":"+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
