// Package pubsub implements the publish/subscribe topic provider (spec
// §4.7): fan-out delivery to compute and queue subscribers filtered by a
// per-subscription filter policy.
package pubsub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lwsgo/internal/apierrors"
	"lwsgo/pkg/logging"
)

// Protocol names a subscriber kind.
type Protocol string

const (
	ProtocolComputeFn Protocol = "compute-fn"
	ProtocolQueue     Protocol = "queue"
)

// FilterPolicy maps an attribute name to the list of values that pass.
type FilterPolicy map[string][]string

// Matches reports whether attrs passes policy: every policy key's value
// must be among its accepted list; a missing attribute fails the match
// (spec §4.7).
func (p FilterPolicy) Matches(attrs map[string]string) bool {
	for key, accepted := range p {
		v, ok := attrs[key]
		if !ok {
			return false
		}
		found := false
		for _, a := range accepted {
			if a == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Subscription is one registered topic subscriber.
type Subscription struct {
	ID       string
	Topic    string
	Protocol Protocol
	Endpoint string // function name/ARN for compute-fn, queue name for queue
	Filter   FilterPolicy
}

// ComputeInvoker delivers a records-envelope event to a compute target.
type ComputeInvoker interface {
	Invoke(topicARN, endpoint string, envelope NotificationEnvelope) error
}

// QueueSender delivers a stringified envelope as a queue message body.
type QueueSender interface {
	Send(queueName, body string) error
}

// NotificationEnvelope is the record delivered to a subscriber (spec §6
// "Notifications into compute" / §4.7).
type NotificationEnvelope struct {
	Type             string            `json:"Type"`
	TopicARN         string            `json:"TopicArn"`
	MessageID        string            `json:"MessageId"`
	Subject          string            `json:"Subject,omitempty"`
	Message          string            `json:"Message"`
	Timestamp        time.Time         `json:"Timestamp"`
	MessageAttributes map[string]string `json:"MessageAttributes,omitempty"`
}

type topic struct {
	name string
	subs map[string]Subscription
}

// Provider manages topics and their subscriptions.
type Provider struct {
	region    string
	accountID string

	computeInvoker ComputeInvoker
	queueSender    QueueSender

	mu     sync.RWMutex
	topics map[string]*topic
}

func New(region, accountID string, computeInvoker ComputeInvoker, queueSender QueueSender) *Provider {
	return &Provider{
		region:         region,
		accountID:      accountID,
		computeInvoker: computeInvoker,
		queueSender:    queueSender,
		topics:         make(map[string]*topic),
	}
}

func (p *Provider) arn(topicName string) string {
	return fmt.Sprintf("arn:aws:sns:%s:%s:%s", p.region, p.accountID, topicName)
}

func (p *Provider) CreateTopic(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.topics[name]; !ok {
		p.topics[name] = &topic{name: name, subs: make(map[string]Subscription)}
	}
}

func (p *Provider) DeleteTopic(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.topics, name)
}

func (p *Provider) getTopic(name string) (*topic, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.topics[name]
	if !ok {
		return nil, apierrors.NewTopicNotFoundError(name)
	}
	return t, nil
}

func (p *Provider) Subscribe(topicName string, protocol Protocol, endpoint string, filter FilterPolicy) (string, error) {
	t, err := p.getTopic(topicName)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.NewString()
	t.subs[id] = Subscription{ID: id, Topic: topicName, Protocol: protocol, Endpoint: endpoint, Filter: filter}
	return id, nil
}

func (p *Provider) Unsubscribe(topicName, subscriptionID string) error {
	t, err := p.getTopic(topicName)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(t.subs, subscriptionID)
	return nil
}

func (p *Provider) GetSubscriptionAttributes(topicName, subscriptionID string) (Subscription, bool, error) {
	t, err := p.getTopic(topicName)
	if err != nil {
		return Subscription{}, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	sub, ok := t.subs[subscriptionID]
	return sub, ok, nil
}

func (p *Provider) SetSubscriptionAttributes(topicName, subscriptionID string, filter FilterPolicy) error {
	t, err := p.getTopic(topicName)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := t.subs[subscriptionID]
	if !ok {
		return apierrors.NewResourceNotFoundError("sns", subscriptionID)
	}
	sub.Filter = filter
	t.subs[subscriptionID] = sub
	return nil
}

func (p *Provider) ListTopics() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.topics))
	for name := range p.topics {
		names = append(names, name)
	}
	return names
}

func (p *Provider) ListSubscriptions(topicName string) ([]Subscription, error) {
	t, err := p.getTopic(topicName)
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Subscription, 0, len(t.subs))
	for _, s := range t.subs {
		out = append(out, s)
	}
	return out, nil
}

// Publish fans out message to every subscriber whose filter policy
// matches attrs, as an independent detached task per subscriber (spec
// §4.7: "best-effort fire-and-forget").
func (p *Provider) Publish(topicName, subject, message string, attrs map[string]string) (string, error) {
	t, err := p.getTopic(topicName)
	if err != nil {
		return "", err
	}
	messageID := uuid.NewString()
	envelope := NotificationEnvelope{
		Type:              "Notification",
		TopicARN:          p.arn(topicName),
		MessageID:         messageID,
		Subject:           subject,
		Message:           message,
		Timestamp:         time.Now().UTC(),
		MessageAttributes: attrs,
	}

	p.mu.RLock()
	subs := make([]Subscription, 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	p.mu.RUnlock()

	for _, sub := range subs {
		if !sub.Filter.Matches(attrs) {
			continue
		}
		go p.deliver(sub, envelope)
	}
	return messageID, nil
}

func (p *Provider) deliver(sub Subscription, envelope NotificationEnvelope) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("pubsub", nil, "subscriber %s panicked: %v", sub.ID, r)
		}
	}()
	var err error
	switch sub.Protocol {
	case ProtocolComputeFn:
		if p.computeInvoker != nil {
			err = p.computeInvoker.Invoke(envelope.TopicARN, sub.Endpoint, envelope)
		}
	case ProtocolQueue:
		if p.queueSender != nil {
			b, marshalErr := json.Marshal(envelope)
			if marshalErr != nil {
				err = marshalErr
				break
			}
			err = p.queueSender.Send(sub.Endpoint, string(b))
		}
	}
	if err != nil {
		logging.Warn("pubsub", "delivery to subscriber %s (%s) failed: %v", sub.ID, sub.Endpoint, err)
	}
}
