// ConnectableObservable implementation for RxGo
// 可连接Observable：订阅只注册到内部Subject，Connect时才订阅上游
package rxgo

import (
	"sync"

	"github.com/google/uuid"
)

// ============================================================================
// ConnectableObservable 实现
// ============================================================================

// ConnectableConfig Connectable的配置
type ConnectableConfig struct {
	// Connector 创建多播Subject，nil时使用NewSubject
	Connector func() SubjectLike
	// KeepSubjectOnDisconnect 为true时断开连接后保留原Subject，
	// 后来的订阅者会收到之前的终止通知
	KeepSubjectOnDisconnect bool
}

// ConnectableObservable 热Observable
// 引用计数等共享状态保存在该值中，所有订阅者引用同一个实例
type ConnectableObservable struct {
	*Observable

	mu           sync.Mutex
	source       *Observable
	cfg          ConnectableConfig
	subject      SubjectLike
	connection   *Subscriber
	connectionID uuid.UUID
	refCount     int
}

// Connectable 创建可连接Observable
func Connectable(source *Observable, configs ...ConnectableConfig) *ConnectableObservable {
	var cfg ConnectableConfig
	if len(configs) > 0 {
		cfg = configs[0]
	}
	if cfg.Connector == nil {
		cfg.Connector = newSubjectConnector
	}
	c := &ConnectableObservable{
		source:  source,
		cfg:     cfg,
		subject: cfg.Connector(),
	}
	c.Observable = NewObservable(func(subscriber *Subscriber) TeardownLogic {
		c.mu.Lock()
		subject := c.subject
		c.mu.Unlock()
		return subject.Subscribe(subscriber)
	})
	return c
}

// Connect 订阅上游并把通知多播给所有订阅者
// 已经连接时返回现有连接；取消返回的订阅即断开连接
func (c *ConnectableObservable) Connect() *Subscriber {
	c.mu.Lock()
	if c.connection != nil && !c.connection.Closed() {
		conn := c.connection
		c.mu.Unlock()
		return conn
	}
	subject := c.subject
	id := uuid.New()
	conn := NewSafeSubscriber(subject)
	c.connection = conn
	c.connectionID = id
	c.mu.Unlock()

	conn.Add(func() {
		Logger().Debug().Str("connection_id", id.String()).Msg("connectable: disconnected")
		if c.cfg.KeepSubjectOnDisconnect {
			return
		}
		c.mu.Lock()
		if c.subject == subject {
			c.subject = c.cfg.Connector()
		}
		c.mu.Unlock()
	})
	Logger().Debug().Str("connection_id", id.String()).Msg("connectable: connecting")
	c.source.Subscribe(conn)
	return conn
}

// ConnectionID 当前（或最近一次）连接的标识，从未连接时为uuid.Nil
func (c *ConnectableObservable) ConnectionID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionID
}

// Connected 是否存在活跃的连接
func (c *ConnectableObservable) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connection != nil && !c.connection.Closed()
}

// RefCount 第一个订阅者到来时自动连接，最后一个订阅者离开时断开
func (c *ConnectableObservable) RefCount() *Observable {
	return NewObservable(func(subscriber *Subscriber) TeardownLogic {
		c.mu.Lock()
		c.refCount++
		c.mu.Unlock()

		var connection *Subscriber
		refCounter := NewOperatorSubscriber(subscriber, OperatorHooks{
			OnFinalize: func() {
				c.mu.Lock()
				if c.refCount <= 0 {
					c.mu.Unlock()
					return
				}
				c.refCount--
				if c.refCount > 0 {
					c.mu.Unlock()
					return
				}
				shared := c.connection
				c.mu.Unlock()

				if shared != nil && (connection == nil || shared == connection) {
					unsubscribeQuietly(shared)
				}
				subscriber.Unsubscribe()
			},
		})
		c.Subscribe(refCounter)
		if !refCounter.Closed() {
			connection = c.Connect()
		}
		return nil
	})
}
