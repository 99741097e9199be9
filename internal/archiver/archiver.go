package archiver

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// 注文のアーカイブに必要な操作だけを受け取る
type OrderArchiver interface {
	ArchiveCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Archiver は completed のまま保持期間を過ぎた注文を archived に落とす常駐ループ。
// リクエスト処理とは独立に動き、ctxキャンセルで止まる。
type Archiver struct {
	orders        OrderArchiver
	retention     time.Duration
	interval      time.Duration
	retryInterval time.Duration
}

func New(orders OrderArchiver, retention, interval, retryInterval time.Duration) *Archiver {
	return &Archiver{
		orders:        orders,
		retention:     retention,
		interval:      interval,
		retryInterval: retryInterval,
	}
}

// Run は停止までブロックする。失敗した回は短い間隔でリトライし、
// 成功したら通常間隔に戻る。
func (a *Archiver) Run(ctx context.Context) {
	//起動直後に1回流してから周期に入る
	next := a.interval
	if err := a.RunOnce(ctx); err != nil {
		next = a.retryInterval
	}

	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("order archiver stopped")
			return
		case <-timer.C:
			next := a.interval
			if err := a.RunOnce(ctx); err != nil {
				next = a.retryInterval
			}
			timer.Reset(next)
		}
	}
}

// RunOnce は1回分のアーカイブ（条件付き一括UPDATE）を実行する。
func (a *Archiver) RunOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-a.retention)

	archived, err := a.orders.ArchiveCompletedBefore(ctx, cutoff)
	if err != nil {
		zap.L().Error("order archive run failed",
			zap.Time("cutoff", cutoff),
			zap.Duration("retry_in", a.retryInterval),
			zap.Error(err))
		return err
	}

	zap.L().Info("order archive run finished",
		zap.Time("cutoff", cutoff),
		zap.Int64("archived", archived))
	return nil
}
