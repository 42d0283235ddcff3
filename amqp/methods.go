package amqp

import "time"

// Table stores application or header-exchange fields. Encoding follows the
// AMQP 0-9-1 field-table rules bit-exactly; that encoding lives in the wire
// codec, out of scope here.
type Table map[string]interface{}

// Decimal matches the AMQP decimal type: Value * 10^-Scale.
type Decimal struct {
	Scale uint8
	Value int32
}

// Properties is the AMQP basic-properties bitfield, opaque to this package
// beyond pass-through, as spec.md §3 requires.
type Properties struct {
	ContentType     string
	ContentEncoding string
	Headers         Table
	DeliveryMode    uint8
	Priority        uint8
	CorrelationID   string
	ReplyTo         string
	Expiration      string
	MessageID       string
	Timestamp       time.Time
	Type            string
	UserID          string
	AppID           string
}

// Delivery modes for Properties.DeliveryMode.
const (
	Transient  uint8 = 1
	Persistent uint8 = 2
)

// Publishing is the message a caller hands to basic_publish/Publish.
type Publishing struct {
	Properties
	Body []byte
}

// Method classes this package dispatches. Numeric ids follow the AMQP 0-9-1
// specification; they are never re-derived at runtime, only used as
// ClassID()/MethodID() return values for type-switch dispatch.
const (
	classChannel  = 20
	classExchange = 40
	classQueue    = 50
	classBasic    = 60
	classConfirm  = 85
)

// --- channel class -------------------------------------------------------

type ChannelOpen struct{}

func (ChannelOpen) ClassID() uint16  { return classChannel }
func (ChannelOpen) MethodID() uint16 { return 10 }

type ChannelOpenOk struct{}

func (ChannelOpenOk) ClassID() uint16  { return classChannel }
func (ChannelOpenOk) MethodID() uint16 { return 11 }

type ChannelFlow struct{ Active bool }

func (ChannelFlow) ClassID() uint16  { return classChannel }
func (ChannelFlow) MethodID() uint16 { return 20 }

type ChannelFlowOk struct{ Active bool }

func (ChannelFlowOk) ClassID() uint16  { return classChannel }
func (ChannelFlowOk) MethodID() uint16 { return 21 }

type ChannelClose struct {
	ReplyCode     uint16
	ReplyText     string
	CausedByClass uint16
	CausedByMethod uint16
}

func (ChannelClose) ClassID() uint16  { return classChannel }
func (ChannelClose) MethodID() uint16 { return 40 }

type ChannelCloseOk struct{}

func (ChannelCloseOk) ClassID() uint16  { return classChannel }
func (ChannelCloseOk) MethodID() uint16 { return 41 }

// --- exchange class -------------------------------------------------------

type ExchangeDeclare struct {
	Exchange   string
	Kind       string
	Passive    bool
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Arguments  Table
}

func (ExchangeDeclare) ClassID() uint16  { return classExchange }
func (ExchangeDeclare) MethodID() uint16 { return 10 }

type ExchangeDeclareOk struct{}

func (ExchangeDeclareOk) ClassID() uint16  { return classExchange }
func (ExchangeDeclareOk) MethodID() uint16 { return 11 }

type ExchangeDelete struct {
	Exchange string
	IfUnused bool
	NoWait   bool
}

func (ExchangeDelete) ClassID() uint16  { return classExchange }
func (ExchangeDelete) MethodID() uint16 { return 20 }

type ExchangeDeleteOk struct{}

func (ExchangeDeleteOk) ClassID() uint16  { return classExchange }
func (ExchangeDeleteOk) MethodID() uint16 { return 21 }

type ExchangeBind struct {
	Destination string
	Source      string
	RoutingKey  string
	NoWait      bool
	Arguments   Table
}

func (ExchangeBind) ClassID() uint16  { return classExchange }
func (ExchangeBind) MethodID() uint16 { return 30 }

type ExchangeBindOk struct{}

func (ExchangeBindOk) ClassID() uint16  { return classExchange }
func (ExchangeBindOk) MethodID() uint16 { return 31 }

type ExchangeUnbind struct {
	Destination string
	Source      string
	RoutingKey  string
	NoWait      bool
	Arguments   Table
}

func (ExchangeUnbind) ClassID() uint16  { return classExchange }
func (ExchangeUnbind) MethodID() uint16 { return 40 }

type ExchangeUnbindOk struct{}

func (ExchangeUnbindOk) ClassID() uint16  { return classExchange }
func (ExchangeUnbindOk) MethodID() uint16 { return 51 }

// --- queue class -----------------------------------------------------------

type QueueDeclare struct {
	Queue      string
	Passive    bool
	Durable    bool
	Exclusive  bool
	AutoDelete bool
	NoWait     bool
	Arguments  Table
}

func (QueueDeclare) ClassID() uint16  { return classQueue }
func (QueueDeclare) MethodID() uint16 { return 10 }

type QueueDeclareOk struct {
	Queue         string
	MessageCount  uint32
	ConsumerCount uint32
}

func (QueueDeclareOk) ClassID() uint16  { return classQueue }
func (QueueDeclareOk) MethodID() uint16 { return 11 }

type QueueBind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	NoWait     bool
	Arguments  Table
}

func (QueueBind) ClassID() uint16  { return classQueue }
func (QueueBind) MethodID() uint16 { return 20 }

type QueueBindOk struct{}

func (QueueBindOk) ClassID() uint16  { return classQueue }
func (QueueBindOk) MethodID() uint16 { return 21 }

type QueueUnbind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Arguments  Table
}

func (QueueUnbind) ClassID() uint16  { return classQueue }
func (QueueUnbind) MethodID() uint16 { return 50 }

type QueueUnbindOk struct{}

func (QueueUnbindOk) ClassID() uint16  { return classQueue }
func (QueueUnbindOk) MethodID() uint16 { return 51 }

type QueuePurge struct {
	Queue  string
	NoWait bool
}

func (QueuePurge) ClassID() uint16  { return classQueue }
func (QueuePurge) MethodID() uint16 { return 30 }

type QueuePurgeOk struct{ MessageCount uint32 }

func (QueuePurgeOk) ClassID() uint16  { return classQueue }
func (QueuePurgeOk) MethodID() uint16 { return 31 }

type QueueDelete struct {
	Queue    string
	IfUnused bool
	IfEmpty  bool
	NoWait   bool
}

func (QueueDelete) ClassID() uint16  { return classQueue }
func (QueueDelete) MethodID() uint16 { return 40 }

type QueueDeleteOk struct{ MessageCount uint32 }

func (QueueDeleteOk) ClassID() uint16  { return classQueue }
func (QueueDeleteOk) MethodID() uint16 { return 41 }

// --- basic class -----------------------------------------------------------

type BasicQos struct {
	PrefetchSize  uint32
	PrefetchCount uint16
	Global        bool
}

func (BasicQos) ClassID() uint16  { return classBasic }
func (BasicQos) MethodID() uint16 { return 10 }

type BasicQosOk struct{}

func (BasicQosOk) ClassID() uint16  { return classBasic }
func (BasicQosOk) MethodID() uint16 { return 11 }

type BasicConsume struct {
	Queue       string
	ConsumerTag string
	NoLocal     bool
	NoAck       bool
	Exclusive   bool
	NoWait      bool
	Arguments   Table
}

func (BasicConsume) ClassID() uint16  { return classBasic }
func (BasicConsume) MethodID() uint16 { return 20 }

type BasicConsumeOk struct{ ConsumerTag string }

func (BasicConsumeOk) ClassID() uint16  { return classBasic }
func (BasicConsumeOk) MethodID() uint16 { return 21 }

type BasicCancel struct {
	ConsumerTag string
	NoWait      bool
}

func (BasicCancel) ClassID() uint16  { return classBasic }
func (BasicCancel) MethodID() uint16 { return 30 }

type BasicCancelOk struct{ ConsumerTag string }

func (BasicCancelOk) ClassID() uint16  { return classBasic }
func (BasicCancelOk) MethodID() uint16 { return 31 }

type BasicPublish struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	Immediate  bool
}

func (BasicPublish) ClassID() uint16  { return classBasic }
func (BasicPublish) MethodID() uint16 { return 40 }

type BasicReturn struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
}

func (BasicReturn) ClassID() uint16  { return classBasic }
func (BasicReturn) MethodID() uint16 { return 50 }

type BasicDeliver struct {
	ConsumerTag string
	DeliveryTag uint64
	Redelivered bool
	Exchange    string
	RoutingKey  string
}

func (BasicDeliver) ClassID() uint16  { return classBasic }
func (BasicDeliver) MethodID() uint16 { return 60 }

type BasicGet struct {
	Queue  string
	NoAck  bool
}

func (BasicGet) ClassID() uint16  { return classBasic }
func (BasicGet) MethodID() uint16 { return 70 }

type BasicGetOk struct {
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
}

func (BasicGetOk) ClassID() uint16  { return classBasic }
func (BasicGetOk) MethodID() uint16 { return 71 }

type BasicGetEmpty struct{}

func (BasicGetEmpty) ClassID() uint16  { return classBasic }
func (BasicGetEmpty) MethodID() uint16 { return 72 }

type BasicAck struct {
	DeliveryTag uint64
	Multiple    bool
}

func (BasicAck) ClassID() uint16  { return classBasic }
func (BasicAck) MethodID() uint16 { return 80 }

type BasicReject struct {
	DeliveryTag uint64
	Requeue     bool
}

func (BasicReject) ClassID() uint16  { return classBasic }
func (BasicReject) MethodID() uint16 { return 90 }

type BasicRecoverAsync struct{ Requeue bool }

func (BasicRecoverAsync) ClassID() uint16  { return classBasic }
func (BasicRecoverAsync) MethodID() uint16 { return 100 }

type BasicRecover struct{ Requeue bool }

func (BasicRecover) ClassID() uint16  { return classBasic }
func (BasicRecover) MethodID() uint16 { return 110 }

type BasicRecoverOk struct{}

func (BasicRecoverOk) ClassID() uint16  { return classBasic }
func (BasicRecoverOk) MethodID() uint16 { return 111 }

type BasicNack struct {
	DeliveryTag uint64
	Multiple    bool
	Requeue     bool
}

func (BasicNack) ClassID() uint16  { return classBasic }
func (BasicNack) MethodID() uint16 { return 120 }

// --- confirm class -----------------------------------------------------------

type ConfirmSelect struct{ NoWait bool }

func (ConfirmSelect) ClassID() uint16  { return classConfirm }
func (ConfirmSelect) MethodID() uint16 { return 10 }

type ConfirmSelectOk struct{}

func (ConfirmSelectOk) ClassID() uint16  { return classConfirm }
func (ConfirmSelectOk) MethodID() uint16 { return 11 }
