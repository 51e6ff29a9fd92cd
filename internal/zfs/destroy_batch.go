package zfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
)

// DestroyOp is one requested snapshot destroy, reported back through
// ErrOut. Batches same-filesystem destroys into one
// `zfs destroy fs@a,b,c` call and falls back to sequential calls when
// that call fails. The halving branch in destroyBatchRec only matches
// an *os.PathError carrying E2BIG, which the *Error returned by
// Client.Destroy does not wrap, so an oversized batch also ends in
// sequential calls.
type DestroyOp struct {
	Filesystem   string
	Name         string
	ForceUnmount bool
	ErrOut       *error
}

func (o *DestroyOp) String() string {
	return fmt.Sprintf("destroy %s@%s", o.Filesystem, o.Name)
}

// DestroyBatched destroys every op, batching by filesystem. Each op's
// ErrOut is populated; the call itself never returns an error, so
// callers must inspect ErrOut to see which destroys failed.
func (c *Client) DestroyBatched(ctx context.Context, ops []*DestroyOp) {
	validated := ops[:0]
	for _, op := range ops {
		switch {
		case op.Filesystem == "":
			*op.ErrOut = errors.New("zfs: Filesystem must not be empty")
		case op.Name == "":
			*op.ErrOut = errors.New("zfs: Name must not be empty")
		default:
			validated = append(validated, op)
		}
	}
	for _, batch := range groupByFilesystem(validated) {
		c.destroyBatchRec(ctx, batch)
	}
}

func groupByFilesystem(ops []*DestroyOp) [][]*DestroyOp {
	if len(ops) == 0 {
		return nil
	}
	sorted := make([]*DestroyOp, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Filesystem != sorted[j].Filesystem {
			return sorted[i].Filesystem < sorted[j].Filesystem
		}
		return sorted[i].Name < sorted[j].Name
	})

	var groups [][]*DestroyOp
	i := 0
	for i < len(sorted) {
		j := i + 1
		for j < len(sorted) && sorted[j].Filesystem == sorted[i].Filesystem {
			j++
		}
		groups = append(groups, sorted[i:j])
		i = j
	}
	return groups
}

func (c *Client) destroyBatchRec(ctx context.Context, batch []*DestroyOp) {
	if len(batch) == 0 {
		return
	}
	if len(batch) == 1 {
		c.destroySeq(ctx, batch)
		return
	}

	err := c.tryBatch(ctx, batch)
	if err == nil {
		setErr(batch, nil)
		return
	}

	var pe *os.PathError
	if errors.As(err, &pe) && errors.Is(pe.Err, syscall.E2BIG) {
		mid := len(batch) / 2
		c.destroyBatchRec(ctx, batch[:mid])
		c.destroyBatchRec(ctx, batch[mid:])
		return
	}

	// Unknown batch failure: fall back to destroying sequentially so a
	// single undestroyable snapshot doesn't block the rest.
	c.destroySeq(ctx, batch)
}

func (c *Client) tryBatch(ctx context.Context, batch []*DestroyOp) error {
	fs := batch[0].Filesystem
	names := make([]string, len(batch))
	forceUnmount := false
	for i, op := range batch {
		names[i] = op.Name
		forceUnmount = forceUnmount || op.ForceUnmount
	}
	full := fmt.Sprintf("%s@%s", fs, strings.Join(names, ","))
	return c.Destroy(ctx, full, forceUnmount)
}

func (c *Client) destroySeq(ctx context.Context, batch []*DestroyOp) {
	for _, op := range batch {
		full := fmt.Sprintf("%s@%s", op.Filesystem, op.Name)
		*op.ErrOut = c.Destroy(ctx, full, op.ForceUnmount)
	}
}

func setErr(ops []*DestroyOp, err error) {
	for _, op := range ops {
		*op.ErrOut = err
	}
}
