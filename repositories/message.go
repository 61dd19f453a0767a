package repositories

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/CletsyMedia/musicfy/domain"
	"github.com/CletsyMedia/musicfy/errors"
)

// MessageRepository persists direct messages in BadgerDB.
//
// Two key families are written per message:
//  1. "msg:{id}" holds the record itself (CBOR encoded).
//  2. "conv:{lo}:{hi}:{timestamp_padded}:{id}" is a conversation index
//     entry whose value is the message id. The 19-digit zero padding keeps
//     lexicographical order chronological, and the trailing UUID acts as a
//     collision disconnector if two messages land on the same nanosecond.
//
// Ownership checks always read back through FindByID; the index is never
// treated as authoritative for content.
type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	pageSize *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, pageSize *int) MessageRepository {
	return MessageRepository{db: db, log: log, pageSize: pageSize}
}

// storedMessage is the CBOR shape written to badger. CreatedAt is kept as
// Unix nanoseconds: the conversation index key is recomputed from the
// decoded record on delete, so the timestamp must round-trip exactly.
type storedMessage struct {
	ID         string   `cbor:"id"`
	SenderID   string   `cbor:"sender_id"`
	ReceiverID string   `cbor:"receiver_id"`
	Content    string   `cbor:"content"`
	CreatedAt  int64    `cbor:"created_at"`
	ReadBy     []string `cbor:"read_by"`
}

const (
	messagePrefix      = "msg:"
	conversationPrefix = "conv:"
	// timestampCeiling sorts after every padded nanosecond timestamp.
	timestampCeiling = "9999999999999999999"
)

func messageKey(id string) []byte {
	return []byte(messagePrefix + id)
}

// conversationScope yields the shared key prefix for a user pair,
// order-independent so both participants scan the same range.
func conversationScope(a, b string) string {
	lo, hi := a, b
	if strings.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%s%s:%s:", conversationPrefix, lo, hi)
}

func conversationKey(m storedMessage) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s",
		conversationScope(m.SenderID, m.ReceiverID),
		m.CreatedAt,
		m.ID,
	))
}

// Create generates the id and timestamp and writes record plus index entry
// in one transaction.
func (r MessageRepository) Create(senderID, receiverID, content string) (domain.Message, error) {
	stored := storedMessage{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC().UnixNano(),
	}
	bytes, err := cbor.Marshal(stored)
	if err != nil {
		return domain.Message{}, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(stored.ID), bytes); err != nil {
			return err
		}
		return txn.Set(conversationKey(stored), []byte(stored.ID))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(stored)
}

func (r MessageRepository) FindByID(id string) (domain.Message, error) {
	var stored storedMessage
	err := r.db.View(func(txn *badger.Txn) error {
		var inner error
		stored, inner = getStored(txn, id)
		return inner
	})
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(stored)
}

// UpdateContent replaces the content in place. The conversation index is
// keyed on id and creation time only, so it needs no rewrite.
func (r MessageRepository) UpdateContent(id, content string) (domain.Message, error) {
	var stored storedMessage
	err := r.db.Update(func(txn *badger.Txn) error {
		var inner error
		stored, inner = getStored(txn, id)
		if inner != nil {
			return inner
		}
		stored.Content = content
		bytes, inner := cbor.Marshal(stored)
		if inner != nil {
			return inner
		}
		return txn.Set(messageKey(id), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(stored)
}

// Delete removes the record and its index entry. Hard delete: once gone,
// every subsequent operation on the id reports ErrNotFound.
func (r MessageRepository) Delete(id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		stored, err := getStored(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(messageKey(id)); err != nil {
			return err
		}
		return txn.Delete(conversationKey(stored))
	})
}

// AppendReader records that userID has read the message. Idempotent: a
// repeated call leaves ReadBy unchanged.
func (r MessageRepository) AppendReader(id, userID string) (domain.Message, error) {
	var stored storedMessage
	err := r.db.Update(func(txn *badger.Txn) error {
		var inner error
		stored, inner = getStored(txn, id)
		if inner != nil {
			return inner
		}
		for _, reader := range stored.ReadBy {
			if reader == userID {
				return nil
			}
		}
		stored.ReadBy = append(stored.ReadBy, userID)
		bytes, inner := cbor.Marshal(stored)
		if inner != nil {
			return inner
		}
		return txn.Set(messageKey(id), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(stored)
}

// Conversation pages through the history between two users, newest first.
// Thanks to the padded timestamp in the index key the reverse iterator
// yields chronological order without sorting. The returned cursor is the
// key remainder of the last row and resumes the scan on the next call.
func (r MessageRepository) Conversation(userA, userB string, cursor *string) ([]domain.Message, *string, error) {
	var ids []string
	var lastKey string
	prefixStr := conversationScope(userA, userB)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append([]byte(prefixStr), []byte(timestampCeiling)...)
		default:
			seekKey = append([]byte(prefixStr), []byte(*cursor)...)
		}

		it.Seek(seekKey)

		// A non-nil cursor points at the last row already returned.
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.pageSize != nil && len(ids) == *r.pageSize {
				r.log.Debug(fmt.Sprintf("History page limit of %d reached", *r.pageSize))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				ids = append(ids, string(value))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	err = r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			stored, err := getStored(txn, id)
			if err != nil {
				// Index row outlived its record; skip rather than fail the page.
				r.log.Warn("dangling conversation index entry", "message_id", id)
				continue
			}
			message, err := toMessage(stored)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

func getStored(txn *badger.Txn, id string) (storedMessage, error) {
	item, err := txn.Get(messageKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return storedMessage{}, errors.ErrNotFound
		}
		return storedMessage{}, err
	}
	var stored storedMessage
	err = item.Value(func(value []byte) error {
		return cbor.Unmarshal(value, &stored)
	})
	return stored, err
}

func toMessage(stored storedMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         parsedID,
		SenderID:   stored.SenderID,
		ReceiverID: stored.ReceiverID,
		Content:    stored.Content,
		CreatedAt:  time.Unix(0, stored.CreatedAt).UTC(),
		ReadBy:     stored.ReadBy,
	}, nil
}
