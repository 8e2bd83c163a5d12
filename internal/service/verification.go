package service

import (
	"fmt"
	"sync"
)

// VerificationHook 组级业务校验：入参是整组 问题文本 -> 答案值 的映射，
// 返回非 nil 即否决本次提交
type VerificationHook func(answers map[string]string) error

// HookViolation 钩子否决明细，Error 文本进入提交报告
type HookViolation struct {
	Question string
	Reason   string
}

func (v *HookViolation) Error() string {
	return fmt.Sprintf("verification failed on %q: %s", v.Question, v.Reason)
}

var (
	hookMu    sync.RWMutex
	hookTable = make(map[string]VerificationHook)
)

// RegisterVerificationHook 启动期注册钩子；问题组只存钩子名，
// 未注册的名字在组保存时报错而不是提交时
func RegisterVerificationHook(name string, hook VerificationHook) error {
	hookMu.Lock()
	defer hookMu.Unlock()
	if _, exists := hookTable[name]; exists {
		return fmt.Errorf("verification hook %q already registered", name)
	}
	hookTable[name] = hook
	return nil
}

func LookupVerificationHook(name string) (VerificationHook, bool) {
	hookMu.RLock()
	defer hookMu.RUnlock()
	hook, ok := hookTable[name]
	return hook, ok
}
