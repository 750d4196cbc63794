package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventType 私有推送的封闭类型集。只在这五个已知类型上分发，
// 未知 channel 落到 EventUnknown：记日志后丢弃。
type EventType int

const (
	EventUnknown EventType = iota
	EventOrderUpdate
	EventExecutionUpdate
	EventAssetUpdate
	EventPositionUpdate
	EventPositionSummaryUpdate
)

func (t EventType) String() string {
	switch t {
	case EventOrderUpdate:
		return "OrderUpdate"
	case EventExecutionUpdate:
		return "ExecutionUpdate"
	case EventAssetUpdate:
		return "AssetUpdate"
	case EventPositionUpdate:
		return "PositionUpdate"
	case EventPositionSummaryUpdate:
		return "PositionSummaryUpdate"
	default:
		return "Unknown"
	}
}

// GMO 私有 WS channel -> 事件类型。
var channelEvents = map[string]EventType{
	"orderEvents":           EventOrderUpdate,
	"executionEvents":       EventExecutionUpdate,
	"assetEvents":           EventAssetUpdate,
	"positionEvents":        EventPositionUpdate,
	"positionSummaryEvents": EventPositionSummaryUpdate,
}

// PushHandler 推送事件的业务处理方。实现方不得假设调用顺序，
// 同一订单的并发投递由实现方自行串行化。
type PushHandler interface {
	HandleOrderUpdate(ctx context.Context, ev OrderUpdateData)
	HandleExecutionUpdate(ctx context.Context, ev ExecutionUpdateData)
	HandleAssetUpdate(ctx context.Context, ev AssetUpdateData)
	HandlePositionUpdate(ctx context.Context, ev PositionUpdateData)
	HandlePositionSummaryUpdate(ctx context.Context, raw json.RawMessage)
}

// Dispatcher 把原始推送帧分发给 handler。每个事件在独立 goroutine 中处理，
// 慢 handler 不会阻塞读取线程；单帧解析失败只丢弃该帧。
type Dispatcher struct {
	handler PushHandler
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(handler PushHandler, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{handler: handler, log: log}
}

// frameEnvelope 只取分发所需的 channel 字段，载荷保持原样传递。
type frameEnvelope struct {
	Channel string `json:"channel"`
}

// Dispatch 解析一帧并调度处理任务。错误不向上传播。
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) {
	var env frameEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.log.Warn("drop malformed push frame", zap.Error(err))
		return
	}
	eventType := channelEvents[env.Channel]
	d.log.Debug("push event received", zap.String("type", eventType.String()))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(ctx, eventType, raw)
	}()
}

func (d *Dispatcher) dispatch(ctx context.Context, eventType EventType, raw []byte) {
	switch eventType {
	case EventOrderUpdate:
		var ev OrderUpdateData
		if err := json.Unmarshal(raw, &ev); err != nil {
			d.log.Warn("drop malformed order update", zap.Error(err))
			return
		}
		d.handler.HandleOrderUpdate(ctx, ev)
	case EventExecutionUpdate:
		var ev ExecutionUpdateData
		if err := json.Unmarshal(raw, &ev); err != nil {
			d.log.Warn("drop malformed execution update", zap.Error(err))
			return
		}
		d.handler.HandleExecutionUpdate(ctx, ev)
	case EventAssetUpdate:
		var ev AssetUpdateData
		if err := json.Unmarshal(raw, &ev); err != nil {
			d.log.Warn("drop malformed asset update", zap.Error(err))
			return
		}
		d.handler.HandleAssetUpdate(ctx, ev)
	case EventPositionUpdate:
		var ev PositionUpdateData
		if err := json.Unmarshal(raw, &ev); err != nil {
			d.log.Warn("drop malformed position update", zap.Error(err))
			return
		}
		d.handler.HandlePositionUpdate(ctx, ev)
	case EventPositionSummaryUpdate:
		d.handler.HandlePositionSummaryUpdate(ctx, json.RawMessage(raw))
	default:
		d.log.Debug("unknown push event, dropped")
	}
}

// Wait 等待所有在途处理任务结束（关停时调用）。
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stream 从已建立的私有 WS 连接读取帧并交给 Dispatcher。
// 鉴权、重连属于外部职责；这里只做读取与分发。
type Stream struct {
	Conn       *websocket.Conn
	Dispatcher *Dispatcher
	Log        *zap.Logger
}

// Run 阻塞读取直至连接关闭或 ctx 取消。读取错误返回给调用方，
// 单帧的业务失败绝不终止连接。
func (s *Stream) Run(ctx context.Context) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		<-ctx.Done()
		_ = s.Conn.Close()
	}()
	for {
		_, message, err := s.Conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.Dispatcher.Dispatch(ctx, message)
	}
}
