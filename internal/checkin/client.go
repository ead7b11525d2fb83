package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	clierr "github.com/gzale/wrapcycle/internal/errors"
	"github.com/gzale/wrapcycle/internal/httpx"
	"github.com/gzale/wrapcycle/internal/logging"
)

const checkinQuery = `mutation CheckIn($address: String!, $taskId: String!) { checkIn(address: $address, taskId: $taskId) { ok } }`

// Notifier issues the daily check-in call once per account. Calls are
// best-effort: one account's failure never affects the others, and nothing is
// retried.
type Notifier struct {
	http   *httpx.Client
	url    string
	taskID string
	log    logging.Logger
}

func New(url, taskID string, timeout time.Duration, log logging.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		http:   httpx.New(timeout, 0),
		url:    url,
		taskID: taskID,
		log:    log,
	}
}

type request struct {
	Query     string    `json:"query"`
	Variables variables `json:"variables"`
}

type variables struct {
	Address string `json:"address"`
	TaskID  string `json:"taskId"`
}

type response struct {
	Data struct {
		CheckIn struct {
			OK bool `json:"ok"`
		} `json:"checkIn"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NotifyAll fans out one call per account, waits for all of them and returns
// how many succeeded.
func (n *Notifier) NotifyAll(ctx context.Context, addrs []common.Address) int {
	results := make([]bool, len(addrs))
	var wg sync.WaitGroup
	for i, addr := range addrs {
		wg.Add(1)
		go func(i int, addr common.Address) {
			defer wg.Done()
			if err := n.notify(ctx, addr); err != nil {
				n.log.Warnf("check-in failed for %s: %s", addr.Hex(), clierr.Describe(err))
				return
			}
			results[i] = true
		}(i, addr)
	}
	wg.Wait()

	count := 0
	for _, ok := range results {
		if ok {
			count++
		}
	}
	n.log.Infof("check-in complete: %d/%d accounts reported", count, len(addrs))
	return count
}

func (n *Notifier) notify(ctx context.Context, addr common.Address) error {
	req := request{
		Query:     checkinQuery,
		Variables: variables{Address: addr.Hex(), TaskID: n.taskID},
	}
	var resp response
	if err := n.http.PostJSON(ctx, n.url, req, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return clierr.New(clierr.CodeCheckin, resp.Errors[0].Message)
	}
	if !resp.Data.CheckIn.OK {
		return clierr.New(clierr.CodeCheckin, "check-in not acknowledged")
	}
	return nil
}
