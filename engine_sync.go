package fitauth

import "context"

/*
====================================
BACKEND IDENTITY SYNC
====================================
*/

// completeAuthentication turns a pending authentication into an established
// session. Federated identities sync to the backend best-effort in the
// background and the session opens immediately on the provider identity;
// password identities sync synchronously and a rejection blocks the session.
func (e *Engine) completeAuthentication(ctx context.Context, pending *pendingAuth) (*BackendUser, error) {
	var user *BackendUser

	if pending.federated {
		user = backendUserFromIdentity(pending.identity)
		e.syncInBackground(*pending)
	} else {
		synced, err := e.syncIdentity(ctx, pending.proof, pending.identity)
		if err != nil {
			return nil, err
		}
		user = synced
	}

	e.establishSession(ctx, user, pending.proof)

	e.mu.Lock()
	e.pending = nil
	e.pendingReg = ""
	e.mu.Unlock()

	return user, nil
}

// syncIdentity pushes the identity to the backend and returns the canonical
// user record. The call is bounded by the configured sync timeout regardless
// of the caller's context.
func (e *Engine) syncIdentity(ctx context.Context, proof string, id Identity) (*BackendUser, error) {
	syncCtx, cancel := context.WithTimeout(ctx, e.config.Backend.SyncTimeout)
	defer cancel()

	user, err := e.backend.UpsertIdentity(syncCtx, proof, id)
	if err != nil {
		e.metricInc(MetricSyncRejected)
		e.emitAudit(ctx, auditEventSyncUpsert, false, id.Email, ErrSyncRejected, nil)
		e.warn("backend identity sync rejected: " + err.Error())
		return nil, ErrSyncRejected
	}

	e.metricInc(MetricSyncSuccess)
	e.emitAudit(ctx, auditEventSyncUpsert, true, id.Email, nil, nil)
	return user, nil
}

// syncInBackground fires the upsert without blocking the caller. A failure
// is logged and counted; the session already opened on the provider identity
// and is not revoked.
func (e *Engine) syncInBackground(pending pendingAuth) {
	e.metricInc(MetricSyncBackground)
	e.tasks.Go(func(taskCtx context.Context) {
		if _, err := e.backend.UpsertIdentity(taskCtx, pending.proof, pending.identity); err != nil {
			e.metricInc(MetricSyncRejected)
			e.warn("background identity sync failed: " + err.Error())
			return
		}
		e.metricInc(MetricSyncSuccess)
	})
}

// backendUserFromIdentity projects a provider identity onto the canonical
// record shape, used while the authoritative backend copy is still syncing.
func backendUserFromIdentity(id Identity) *BackendUser {
	return &BackendUser{
		ID:          id.ProviderID,
		ProviderID:  id.ProviderID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		AvatarURL:   id.AvatarURL,
	}
}
