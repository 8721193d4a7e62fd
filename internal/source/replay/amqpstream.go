package replay

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/flightfusion/fusion/pkg/logger"
)

// AMQPStream is a Stream backed by an AMQP queue scoped to a processing
// window: the replay store publishes one queue per date (optionally further
// scoped to a start/end time range), and this dials/declares/consumes that
// queue.
//
// Packets are acked only after the caller's Next returns them and asks for
// the next one (or Close is called), so a mid-stream crash naturally
// redelivers the unacked packet: at-least-once delivery, matching the
// idempotent-replay invariant the C6 state machine depends on.
type AMQPStream struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	deliver <-chan amqp.Delivery
	closed  chan *amqp.Error
	pending *amqp.Delivery
	log     *logger.Logger
}

// OpenAMQPStream dials connStr and opens the queue for date, optionally
// narrowed to [startTime, endTime). Both must be present or both absent;
// callers are expected to have validated that already.
func OpenAMQPStream(ctx context.Context, connStr, queueName, date string, startTime, endTime *string, log *logger.Logger) (*AMQPStream, error) {
	conn, err := amqp.Dial(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to replay broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set channel QoS: %w", err)
	}

	routingKey := date
	if startTime != nil && endTime != nil {
		routingKey = fmt.Sprintf("%s.%s-%s", date, *startTime, *endTime)
	}
	scopedQueue := fmt.Sprintf("%s.%s", queueName, routingKey)

	q, err := ch.QueueDeclare(scopedQueue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", scopedQueue, err)
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to consume queue %q: %w", q.Name, err)
	}

	return &AMQPStream{
		conn:    conn,
		ch:      ch,
		deliver: deliveries,
		closed:  conn.NotifyClose(make(chan *amqp.Error, 1)),
		log:     log.Named("source.replay"),
	}, nil
}

// Next blocks for the next packet. It acks the previously returned delivery
// first, so a packet is only marked consumed once the caller has asked for
// the one after it.
func (s *AMQPStream) Next(ctx context.Context) (Packet, error) {
	if s.pending != nil {
		if err := s.pending.Ack(false); err != nil {
			s.log.Warn("failed to ack delivery", logger.Error(err))
		}
		s.pending = nil
	}

	select {
	case <-ctx.Done():
		return Packet{}, ctx.Err()
	case amqpErr := <-s.closed:
		if amqpErr != nil {
			return Packet{}, fmt.Errorf("replay broker connection closed: %w", amqpErr)
		}
		return Packet{}, fmt.Errorf("replay broker connection closed")
	case d, ok := <-s.deliver:
		if !ok {
			return Packet{}, fmt.Errorf("replay stream closed")
		}
		s.pending = &d
		return Packet{StoredAt: d.Timestamp, Raw: d.Body}, nil
	}
}

// Close releases the broker channel and connection. Any delivery returned
// by the last Next but not yet acked is left unacked, so the broker will
// redeliver it to the next consumer.
func (s *AMQPStream) Close() error {
	if s.ch != nil {
		s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
