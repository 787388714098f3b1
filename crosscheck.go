package ctvgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

// ErrTemplateMismatch 表示两个预言机给出的模板哈希不一致
var ErrTemplateMismatch = errors.New("default template hash mismatch")

// TemplateMismatchError 记录一次不一致的查询及双方结果
type TemplateMismatchError struct {
	Request   TemplateRequest
	Primary   string
	Reference string
}

func (e *TemplateMismatchError) Error() string {
	return fmt.Sprintf("%v: index %d witness %v: primary %s, reference %s",
		ErrTemplateMismatch, e.Request.Index, e.Request.Witness, e.Primary, e.Reference)
}

// Unwrap 支持 errors.Is(err, ErrTemplateMismatch)
func (e *TemplateMismatchError) Unwrap() error {
	return ErrTemplateMismatch
}

// SameHash 忽略大小写比较两个十六进制哈希
func SameHash(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CrossCheckOracle 同时询问两个预言机，结果不一致时返回错误
// Primary 通常是节点，Reference 是本地计算
type CrossCheckOracle struct {
	Primary   TemplateOracle
	Reference TemplateOracle
}

// DefaultTemplate 实现 TemplateOracle，成功时返回 Primary 的结果
func (o *CrossCheckOracle) DefaultTemplate(ctx context.Context, req TemplateRequest) (string, error) {
	primary, err := o.Primary.DefaultTemplate(ctx, req)
	if err != nil {
		return "", err
	}
	reference, err := o.Reference.DefaultTemplate(ctx, req)
	if err != nil {
		return "", err
	}

	if !SameHash(primary, reference) {
		mismatch := &TemplateMismatchError{Request: req, Primary: primary, Reference: reference}
		logrus.Errorf("[CrossCheckOracle] %v", mismatch)
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			if tx, err := DeserializeTxHex(req.TxHex); err == nil {
				logrus.Debugf("[CrossCheckOracle] 交易:\n%s", spew.Sdump(tx))
			}
		}
		return "", mismatch
	}

	return primary, nil
}
