// Package chat backs the support chat with Cloud Firestore. Conversations
// are keyed by the customer's phone number; messages live in a subcollection
// with generated ids.
package chat

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Message senders.
const (
	SenderCliente = "CLIENTE"
	SenderSoporte = "SOPORTE"
)

type Message struct {
	ID      string    `json:"id" firestore:"-"`
	De      string    `json:"de" firestore:"de"`
	Texto   string    `json:"texto" firestore:"texto"`
	Enviado time.Time `json:"enviado" firestore:"enviado"`
}

type Store struct {
	client *firestore.Client
}

func NewStore(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) messages(phone string) *firestore.CollectionRef {
	return s.client.Collection("chats").Doc(phone).Collection("mensajes")
}

// Send appends a message with a generated id and returns the id.
func (s *Store) Send(ctx context.Context, phone string, msg Message) (string, error) {
	if msg.Enviado.IsZero() {
		msg.Enviado = time.Now()
	}
	ref, _, err := s.messages(phone).Add(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return ref.ID, nil
}

// UpdateText rewrites the text of an existing message.
func (s *Store) UpdateText(ctx context.Context, phone, messageID, texto string) error {
	_, err := s.messages(phone).Doc(messageID).Update(ctx, []firestore.Update{
		{Path: "texto", Value: texto},
	})
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

// Delete removes one message.
func (s *Store) Delete(ctx context.Context, phone, messageID string) error {
	if _, err := s.messages(phone).Doc(messageID).Delete(ctx); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// History returns the conversation, oldest first.
func (s *Store) History(ctx context.Context, phone string, limit int) ([]Message, error) {
	q := s.messages(phone).OrderBy("enviado", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	msgs := make([]Message, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		var m Message
		if err := doc.DataTo(&m); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", doc.Ref.ID, err)
		}
		m.ID = doc.Ref.ID
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Listen invokes fn for every message added to the conversation until the
// context is cancelled.
func (s *Store) Listen(ctx context.Context, phone string, fn func(Message)) error {
	snaps := s.messages(phone).OrderBy("enviado", firestore.Asc).Snapshots(ctx)
	defer snaps.Stop()

	for {
		snap, err := snaps.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("listen %s: %w", phone, err)
		}
		for _, change := range snap.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			var m Message
			if err := change.Doc.DataTo(&m); err != nil {
				continue
			}
			m.ID = change.Doc.Ref.ID
			fn(m)
		}
	}
}
