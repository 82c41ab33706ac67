package escrow

import (
	"errors"
	"fmt"
)

// 错误类别，调用方通过 errors.Is 区分
var (
	ErrValidation     = errors.New("参数校验失败")
	ErrState          = errors.New("当前状态不允许该操作")
	ErrTransferFailed = errors.New("资产划转失败")
	ErrUnauthorized   = errors.New("没有操作权限")
)

// 具体校验错误
var (
	ErrEmptyTitle          = fmt.Errorf("%w: 项目标题不能为空", ErrValidation)
	ErrEmptyDescription    = fmt.Errorf("%w: 项目描述不能为空", ErrValidation)
	ErrEmptyImageURL       = fmt.Errorf("%w: 项目图片不能为空", ErrValidation)
	ErrInvalidGoal         = fmt.Errorf("%w: 目标金额必须大于0", ErrValidation)
	ErrInvalidDeadline     = fmt.Errorf("%w: 截止时间必须晚于当前时间", ErrValidation)
	ErrInvalidTaxRate      = fmt.Errorf("%w: 手续费率必须在0到100之间", ErrValidation)
	ErrInvalidBeneficiary  = fmt.Errorf("%w: 受益人地址不能为空", ErrValidation)
	ErrInvalidCreator      = fmt.Errorf("%w: 创建者地址不能为空", ErrValidation)
	ErrInvalidContribution = fmt.Errorf("%w: 出资金额换算后必须大于0", ErrValidation)
	ErrAmbiguousPayment    = fmt.Errorf("%w: 原生资产与单位代币出资只能二选一", ErrValidation)
	ErrStaleQuote          = fmt.Errorf("%w: 预言机报价已过期", ErrValidation)
	ErrProjectNotFound     = fmt.Errorf("%w: 项目不存在", ErrValidation)
)
