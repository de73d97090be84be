package inbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// DefaultIMAPAddr is the mail service's IMAP endpoint.
const DefaultIMAPAddr = "imap.gmail.com:993"

// IMAP reads INBOX over IMAP with implicit TLS. The mailbox is opened
// read-only and bodies are fetched with BODY.PEEK so nothing is marked seen.
type IMAP struct {
	Addr      string
	TLSConfig *tls.Config
}

var _ Mailbox = (*IMAP)(nil)

func (m *IMAP) Fetch(ctx context.Context, creds Credentials, q Query) ([]RawMessage, error) {
	addr := m.Addr
	if addr == "" {
		addr = DefaultIMAPAddr
	}

	c, err := imapclient.DialTLS(addr, &imapclient.Options{TLSConfig: m.TLSConfig})
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrUnavailable, addr, err)
	}
	defer c.Close()

	// Closing the connection unblocks any pending command.
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if err := c.Login(creds.Username, creds.Password).Wait(); err != nil {
		return nil, fail(ctx, ErrAuth, err)
	}
	defer func() { _ = c.Logout().Wait() }()

	mbox, err := c.Select("INBOX", &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fail(ctx, ErrUnavailable, fmt.Errorf("select inbox: %w", err))
	}

	var nums []uint32
	if q.UnreadOnly {
		data, err := c.Search(&imap.SearchCriteria{
			NotFlag: []imap.Flag{imap.FlagSeen},
		}, nil).Wait()
		if err != nil {
			return nil, fail(ctx, ErrUnavailable, fmt.Errorf("search unseen: %w", err))
		}
		nums = data.AllSeqNums()
		slices.Sort(nums)
	} else {
		nums = seqRange(mbox.NumMessages, q.Limit)
	}

	nums = latest(nums, q.Limit)
	if len(nums) == 0 {
		return nil, nil
	}

	bodies, err := fetchBodies(c, nums)
	if err != nil {
		return nil, fail(ctx, ErrUnavailable, err)
	}

	out := make([]RawMessage, 0, len(nums))
	for _, n := range nums {
		if b, ok := bodies[n]; ok {
			out = append(out, RawMessage{SeqNum: n, Body: b})
		}
	}
	return out, nil
}

func fetchBodies(c *imapclient.Client, nums []uint32) (map[uint32][]byte, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	cmd := c.Fetch(imap.SeqSetNum(nums...), &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{section},
	})

	bodies := make(map[uint32][]byte, len(nums))
	var readErr error
	for {
		msg := cmd.Next()
		if msg == nil {
			break
		}
		for {
			item := msg.Next()
			if item == nil {
				break
			}
			data, ok := item.(imapclient.FetchItemDataBodySection)
			if !ok || data.Literal == nil {
				continue
			}
			b, err := io.ReadAll(data.Literal)
			if err != nil {
				readErr = errors.Join(readErr, fmt.Errorf("read message %d: %w", msg.SeqNum, err))
				continue
			}
			bodies[msg.SeqNum] = b
		}
	}
	if err := cmd.Close(); err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}
	return bodies, nil
}

// seqRange lists the last limit sequence numbers of a mailbox holding total
// messages, ascending.
func seqRange(total uint32, limit int) []uint32 {
	if total == 0 {
		return nil
	}
	first := uint32(1)
	if limit > 0 && uint64(total) > uint64(limit) {
		first = total - uint32(limit) + 1
	}
	nums := make([]uint32, 0, total-first+1)
	for n := first; n <= total; n++ {
		nums = append(nums, n)
	}
	return nums
}

func fail(ctx context.Context, reason, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, ctxErr)
	}
	return fmt.Errorf("%w: %w", reason, err)
}
