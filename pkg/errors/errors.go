package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrDuplicateFork 同一节点下同名时段已存在（并发分叉时后提交的一方失败）
var ErrDuplicateFork = errors.New("该节点已存在同名时段定义，请刷新后重试")
