package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cologne-noir/decant/internal/realtime"
)

type bumpCounter struct{ n int }

func (b *bumpCounter) Bump(context.Context) error {
	b.n++
	return nil
}

type failingPublisher struct{ seen []realtime.Change }

func (p *failingPublisher) Publish(_ context.Context, c realtime.Change) error {
	p.seen = append(p.seen, c)
	return errors.New("broker down")
}

func (p *failingPublisher) Close() error { return nil }

type auditRecorder struct{ logs []AuditLog }

func (a *auditRecorder) Record(_ context.Context, log AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestAfterCommitRunsEveryEffectDespiteFailures(t *testing.T) {
	bump := &bumpCounter{}
	pub := &failingPublisher{}
	audit := &auditRecorder{}
	effects := &Effects{Publisher: pub, Cache: bump, Audit: audit}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	effects.AfterCommit(ctx, &AuditLog{ActorID: uuid.New(), Action: "volume.adjust", Entity: "product", EntityID: "p1"},
		realtime.Change{Table: realtime.TableProducts, Action: realtime.ActionUpdate, ID: "p1"},
		realtime.Change{Table: realtime.TableVolumeAdjustments, Action: realtime.ActionInsert, ID: "a1"},
	)

	require.Equal(t, 1, bump.n)
	require.Len(t, pub.seen, 2)
	require.Len(t, audit.logs, 1)
}

func TestNilEffectsIsNoop(t *testing.T) {
	var effects *Effects
	effects.AfterCommit(context.Background(), nil)
}

func TestPaginationOffset(t *testing.T) {
	p := NewPagination(3, 25, 60)
	require.Equal(t, 50, p.Offset())
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, maxPerPage, NewPagination(1, 5000, 0).PerPage)
}
