// Package topic is the topic metadata service: it serializes the list of
// known topics into a single Kopper key, redacting storage failures behind
// a generic error so callers never see Kopper's internals.
package topic

import (
	"errors"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"kopperstack/internal/kopper"
)

// topicsKey is the single Kopper key the whole topic list round-trips
// through; there is no per-topic key, so updates are optimistic
// single-writer: read the full list, mutate it, write the full list back.
const topicsKey = "topics"

// SubscriptionEntry names one subscriber of a topic.
type SubscriptionEntry struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

// TopicEntry is a topic's metadata: its name, its owner, and who's
// subscribed to it.
type TopicEntry struct {
	Name        string              `json:"name"`
	Owner       string              `json:"owner"`
	Subscribers []SubscriptionEntry `json:"subscribers"`
}

type topicList struct {
	Topics []TopicEntry `json:"topics"`
}

// ErrDatabase is the only error this service's callers ever see; the real
// cause is logged internally and never propagated.
var ErrDatabase = errors.New("topic: storage operation failed")

// Service owns the Kopper-backed topic list.
type Service struct {
	db  *kopper.Store
	log *zap.SugaredLogger
}

// New wraps a Kopper store as a topic metadata service.
func New(db *kopper.Store, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{db: db, log: log}
}

func (s *Service) loadTopics() (topicList, error) {
	raw, found, err := s.db.Read([]byte(topicsKey))
	if err != nil {
		s.log.Errorw("topic: failed to read topic list", "error", err)
		return topicList{}, ErrDatabase
	}
	if !found {
		return topicList{}, nil
	}

	var list topicList
	if err := json.Unmarshal(raw, &list); err != nil {
		s.log.Errorw("topic: failed to decode topic list", "error", err)
		return topicList{}, ErrDatabase
	}
	return list, nil
}

func (s *Service) saveTopics(list topicList) error {
	raw, err := json.Marshal(list)
	if err != nil {
		s.log.Errorw("topic: failed to encode topic list", "error", err)
		return ErrDatabase
	}
	if _, err := s.db.Write([]byte(topicsKey), raw); err != nil {
		s.log.Errorw("topic: failed to write topic list", "error", err)
		return ErrDatabase
	}
	return nil
}

// TopicExists reports whether name is a known topic.
func (s *Service) TopicExists(name string) (bool, error) {
	list, err := s.loadTopics()
	if err != nil {
		return false, err
	}
	for _, t := range list.Topics {
		if t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// CreateTopic adds entry to the topic list if its name isn't already taken.
func (s *Service) CreateTopic(entry TopicEntry) error {
	list, err := s.loadTopics()
	if err != nil {
		return err
	}
	for _, t := range list.Topics {
		if t.Name == entry.Name {
			return nil
		}
	}
	list.Topics = append(list.Topics, entry)
	return s.saveTopics(list)
}

// GetTopics returns every known topic.
func (s *Service) GetTopics() ([]TopicEntry, error) {
	list, err := s.loadTopics()
	if err != nil {
		return nil, err
	}
	return list.Topics, nil
}

// GetTopic returns one topic by name.
func (s *Service) GetTopic(name string) (TopicEntry, bool, error) {
	list, err := s.loadTopics()
	if err != nil {
		return TopicEntry{}, false, err
	}
	for _, t := range list.Topics {
		if t.Name == name {
			return t, true, nil
		}
	}
	return TopicEntry{}, false, nil
}

// SubscribeTopic appends a subscriber to an existing topic.
func (s *Service) SubscribeTopic(name string, sub SubscriptionEntry) error {
	list, err := s.loadTopics()
	if err != nil {
		return err
	}
	for i, t := range list.Topics {
		if t.Name == name {
			list.Topics[i].Subscribers = append(list.Topics[i].Subscribers, sub)
			return s.saveTopics(list)
		}
	}
	return ErrDatabase
}
