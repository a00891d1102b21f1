package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/school-admin/internal/models"
	"github.com/pribylovaa/school-admin/internal/pkg/log"
)

// refresh возвращает свежий access-токен взамен stale, получившего 401.
//
// Конкурентные вызовы с одним refresh-токеном делят один сетевой обмен
// (singleflight). Если токен в хранилище уже отличается от stale, значит
// другой вызов обновил его раньше, и обмен не нужен.
//
// Сам обмен отвязан от отмены вызывающего (его результат нужен и другим
// ожидающим) и ограничен RefreshTimeout; вызывающий перестаёт ждать по ctx.Done().
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	const op = "apiclient.refresh"

	if cur, err := c.store.AccessToken(ctx); err == nil && cur != "" && cur != stale {
		return cur, nil
	}

	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		c.metrics.observeRefresh("store_error")
		return "", fmt.Errorf("%s: %w: read refresh token: %w", op, ErrRefreshFailed, err)
	}

	if refreshToken == "" {
		c.metrics.observeRefresh("no_refresh_token")
		return "", fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	detached := context.WithoutCancel(ctx)
	ch := c.refreshes.DoChan(refreshToken, func() (any, error) {
		rctx, cancel := context.WithTimeout(detached, c.cfg.RefreshTimeout)
		defer cancel()

		return c.exchange(rctx, refreshToken)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			// Обмен мог начаться со старым refresh, когда соседний вызов уже
			// обновил пару (ротация): тогда в хранилище уже лежит новый access.
			if cur, err := c.store.AccessToken(ctx); err == nil && cur != "" && cur != stale {
				return cur, nil
			}

			return "", res.Err
		}

		return res.Val.(string), nil
	}
}

// exchange выполняет POST на эндпойнт обновления и сохраняет новый токен
// до того, как его увидит любой повторный запрос.
func (c *Client) exchange(ctx context.Context, refreshToken string) (string, error) {
	const op = "apiclient.exchange"

	lg := log.FromOr(ctx, c.log)

	payload, err := json.Marshal(models.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.execute(ctx, http.MethodPost, c.cfg.RefreshPath, payload, "")
	if err != nil {
		c.metrics.observeRefresh("network_error")
		lg.Warn("token_refresh_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, err)
	}

	if !resp.successful() {
		c.metrics.observeRefresh("rejected")
		lg.Warn("token_refresh_rejected",
			slog.String("op", op),
			slog.Int("status", resp.status),
		)
		return "", fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, resp.httpError())
	}

	var out models.RefreshResponse
	if err := json.Unmarshal(resp.raw, &out); err != nil || out.Access == "" {
		c.metrics.observeRefresh("bad_response")
		return "", fmt.Errorf("%s: %w: response has no access token", op, ErrRefreshFailed)
	}

	now := c.now()

	// Ротация refresh-токена (сервер прислал новый) — сохраняем пару целиком.
	if out.Refresh != "" {
		err = c.store.SetPair(ctx, c.cfg.Expiry.Credentials(models.TokenPair{
			AccessToken:  out.Access,
			RefreshToken: out.Refresh,
		}, now))
	} else {
		err = c.store.SetAccessToken(ctx, out.Access, c.cfg.Expiry.AccessExpiry(out.Access, now))
	}

	if err != nil {
		c.metrics.observeRefresh("store_error")
		lg.Error("token_store_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w: persist access token: %w", op, ErrRefreshFailed, err)
	}

	c.metrics.observeRefresh("ok")
	lg.Info("token_refreshed", slog.Bool("rotated", out.Refresh != ""))

	return out.Access, nil
}
