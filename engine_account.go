package fitauth

import "context"

/*
====================================
ACCOUNT LIFECYCLE
====================================
*/

// DeleteAccount permanently removes the authenticated account. Deletion is
// two-phase: the backend is notified best-effort first, then the provider
// credential is deleted. A provider failure leaves the session intact so the
// caller can retry; the backend notification for that attempt is not
// recalled, which can orphan a backend-side deletion mark until the retry
// lands.
func (e *Engine) DeleteAccount(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	mon := e.mon
	proof := e.currentProof
	e.mu.Unlock()
	if mon == nil || proof == "" {
		return ErrNoSession
	}

	snap := mon.Snapshot()
	req := deletionRequest{providerID: snap.ProviderID, token: proof}

	e.tasks.Go(func(taskCtx context.Context) {
		if err := e.backend.NotifyDeletion(taskCtx, req.token); err != nil {
			e.warn("backend deletion notification failed: " + err.Error())
		}
	})

	if err := e.provider.DeleteCredential(ctx, req.providerID, req.token); err != nil {
		e.metricInc(MetricAccountDeleteFailed)
		e.emitAudit(ctx, auditEventAccountDeleteFail, false, snap.Email, ErrProviderError, nil)
		e.warn("credential deletion failed: " + err.Error())
		return ErrProviderError
	}

	// Credential is gone; tear the session down locally. The provider-side
	// sign-out already happened implicitly with the credential.
	e.mu.Lock()
	if e.mon == mon {
		e.mon = nil
		e.currentProof = ""
		e.pending = nil
	}
	e.mu.Unlock()
	mon.Stop()

	e.tasks.Go(func(taskCtx context.Context) {
		if err := e.backend.Logout(taskCtx); err != nil {
			e.warn("backend logout failed: " + err.Error())
		}
	})

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDeleted, true, snap.Email, nil, nil)
	return nil
}
