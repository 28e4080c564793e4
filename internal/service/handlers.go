package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/paste"
	"go.klb.dev/copas/internal/pin"
	"go.klb.dev/copas/internal/settings"
	"go.klb.dev/copas/internal/surface"
	"go.klb.dev/copas/internal/tabs"
)

var (
	errBadRequest = errors.New("bad request")
	errUnknownOp  = errors.New("unknown operation")
)

type handler func(ctx context.Context, req *message.Message) (any, error)

// args decodes the request arguments into a T.
func args[T any](req *message.Message) (T, error) {
	var a T
	if err := req.BindArgs(&a); err != nil {
		return a, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return a, nil
}

// Handle runs one request and returns its RESPONSE or ERROR. It never
// panics.
func (s *Service) Handle(ctx context.Context, req *message.Message) (resp *message.Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic", "op", req.Op, "panic", r)
			resp = message.NewError(req.ID, message.CodeInternal, fmt.Errorf("%s: internal error", req.Op))
		}
	}()

	h, ok := s.handlers[req.Op]
	if !ok {
		return message.NewError(req.ID, message.CodeUnknownOp, fmt.Errorf("%w %q", errUnknownOp, req.Op))
	}
	data, err := h(ctx, req)
	if err != nil {
		return errorResponse(req, data, err)
	}
	resp, err = message.NewResponse(req.ID, data)
	if err != nil {
		slog.Error("encoding response failed", "op", req.Op, "err", err)
		return message.NewError(req.ID, message.CodeInternal, err)
	}
	return resp
}

// errorResponse maps err onto a protocol code. A persist failure still
// carries the result, since the mutation was applied.
func errorResponse(req *message.Message, data any, err error) *message.Message {
	code := codeFor(err)
	if code == message.CodeInternal {
		slog.Error("request failed", "op", req.Op, "err", err)
	} else {
		slog.Debug("request rejected", "op", req.Op, "code", code, "err", err)
	}
	resp := message.NewError(req.ID, code, err)
	if code == message.CodePersist && data != nil {
		if raw, mErr := json.Marshal(data); mErr == nil {
			resp.Data = raw
		}
	}
	return resp
}

func codeFor(err error) message.Code {
	var pe *history.PersistError
	switch {
	case errors.As(err, &pe):
		return message.CodePersist
	case errors.Is(err, errBadRequest):
		return message.CodeBadRequest
	case errors.Is(err, errUnknownOp):
		return message.CodeUnknownOp
	case errors.Is(err, pin.ErrLocked), errors.Is(err, pin.ErrNoPIN):
		return message.CodeLocked
	case errors.Is(err, settings.ErrInvalid),
		errors.Is(err, tabs.ErrEmptyName),
		errors.Is(err, tabs.ErrSystemTab),
		errors.Is(err, pin.ErrWeakPIN):
		return message.CodeValidation
	default:
		return message.CodeInternal
	}
}

func (s *Service) routes() map[string]handler {
	return map[string]handler{
		message.OpGetTabs:   s.getTabs,
		message.OpCreateTab: s.createTab,
		message.OpRenameTab: s.renameTab,
		message.OpDeleteTab: s.deleteTab,

		message.OpGetHistory:     s.getHistory,
		message.OpDeleteItem:     s.deleteItem,
		message.OpDeleteMultiple: s.deleteMultiple,
		message.OpPinItem:        s.pinItem,
		message.OpMoveToTab:      s.moveToTab,
		message.OpLabelItem:      s.labelItem,
		message.OpClearHistory:   s.clearHistory,
		message.OpGetStats:       s.getStats,

		message.OpCopyToClipboard:  s.copyToClipboard,
		message.OpBulkCopy:         s.bulkCopy,
		message.OpPasteAndHide:     s.pasteAndHide,
		message.OpBulkPasteAndHide: s.bulkPasteAndHide,
		message.OpHidePopup:        s.hidePopup,
		message.OpShowPopup:        s.showPopup,
		message.OpTogglePopup:      s.togglePopup,
		message.OpPopupBlur:        s.popupBlur,

		message.OpGetSettings: s.getSettings,
		message.OpSetSettings: s.setSettings,

		message.OpSetVaultPin:     s.setVaultPin,
		message.OpVerifyVaultPin:  s.verifyVaultPin,
		message.OpHasVaultPin:     s.hasVaultPin,
		message.OpMoveToVault:     s.moveToVault,
		message.OpRemoveFromVault: s.removeFromVault,
		message.OpGetVaultItems:   s.getVaultItems,
		message.OpLockVault:       s.lockVault,

		message.OpGetImagePath: s.getImagePath,
		message.OpGetVersion:   s.getVersion,
		message.OpStatus:       s.status,
		message.OpWatch:        s.watchUnsupported,
	}
}

// ── tabs ───────────────────────────────────────────────────────────────────

func (s *Service) getTabs(context.Context, *message.Message) (any, error) {
	return s.tabs.List(), nil
}

func (s *Service) createTab(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.TabArgs](req)
	if err != nil {
		return nil, err
	}
	return s.tabs.Create(ctx, a.Name, a.Icon)
}

func (s *Service) renameTab(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.TabArgs](req)
	if err != nil {
		return nil, err
	}
	ok, err := s.tabs.Rename(ctx, a.ID, a.Name, a.Icon)
	return message.Applied{Applied: ok}, err
}

func (s *Service) deleteTab(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.IDArgs](req)
	if err != nil {
		return nil, err
	}
	ok, err := s.tabs.Delete(ctx, a.ID)
	return message.Applied{Applied: ok}, err
}

// ── history ────────────────────────────────────────────────────────────────

func (s *Service) getHistory(_ context.Context, req *message.Message) (any, error) {
	a, err := args[message.HistoryArgs](req)
	if err != nil {
		return nil, err
	}
	return s.store.Query(history.Query{
		Search:   a.Search,
		Tab:      a.TabID,
		Page:     a.Page,
		PageSize: a.PageSize,
	}), nil
}

func (s *Service) deleteItem(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.IDArgs](req)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.Delete(ctx, a.ID)
	return message.Applied{Applied: ok}, err
}

func (s *Service) deleteMultiple(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.IDsArgs](req)
	if err != nil {
		return nil, err
	}
	n, err := s.store.DeleteMany(ctx, a.IDs)
	return message.Count{Count: n}, err
}

func (s *Service) pinItem(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.IDArgs](req)
	if err != nil {
		return nil, err
	}
	pinned, ok, err := s.store.TogglePin(ctx, a.ID)
	return message.PinResult{Applied: ok, Pinned: pinned}, err
}

func (s *Service) moveToTab(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.MoveArgs](req)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.MoveToTab(ctx, a.ItemID, a.TabID)
	return message.Applied{Applied: ok}, err
}

func (s *Service) labelItem(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.LabelArgs](req)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.SetLabel(ctx, a.ID, a.Label)
	return message.Applied{Applied: ok}, err
}

func (s *Service) clearHistory(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.ClearArgs](req)
	if err != nil {
		return nil, err
	}
	n, err := s.store.Clear(ctx, a.TabID)
	if n > 0 {
		slog.Info("history cleared", "tab", a.TabID, "removed", n)
	}
	return message.Count{Count: n}, err
}

func (s *Service) getStats(ctx context.Context, _ *message.Message) (any, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		slog.Warn("stats incomplete", "err", err)
	}
	return st, nil
}

// ── clipboard and popup ────────────────────────────────────────────────────

func (s *Service) copyToClipboard(_ context.Context, req *message.Message) (any, error) {
	a, err := args[message.ContentArgs](req)
	if err != nil {
		return nil, err
	}
	if a.ImagePath != "" {
		err = s.paste.CopyImage(a.ImagePath)
	} else {
		err = s.paste.Copy(a.Content)
	}
	return message.Applied{Applied: err == nil}, err
}

func (s *Service) bulkCopy(_ context.Context, req *message.Message) (any, error) {
	a, err := args[message.ContentsArgs](req)
	if err != nil {
		return nil, err
	}
	err = s.paste.BulkCopy(a.Contents, s.settings.Get().PasteDelimiter)
	return message.Applied{Applied: err == nil}, err
}

func (s *Service) pasteAndHide(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.ContentArgs](req)
	if err != nil {
		return nil, err
	}
	var res paste.Result
	if a.ImagePath != "" {
		res, err = s.paste.PasteImage(ctx, a.ImagePath)
	} else {
		res, err = s.paste.Paste(ctx, a.Content)
	}
	if err != nil {
		return nil, err
	}
	return message.PasteResult{Injected: res.Injected}, nil
}

func (s *Service) bulkPasteAndHide(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.ContentsArgs](req)
	if err != nil {
		return nil, err
	}
	res, err := s.paste.BulkPaste(ctx, a.Contents, s.settings.Get().PasteDelimiter)
	if err != nil {
		return nil, err
	}
	return message.PasteResult{Injected: res.Injected}, nil
}

func (s *Service) hidePopup(context.Context, *message.Message) (any, error) {
	s.surface.Hide(surface.ReasonUser)
	return message.Visible{Visible: s.surface.Visible()}, nil
}

func (s *Service) showPopup(context.Context, *message.Message) (any, error) {
	s.surface.Show()
	return message.Visible{Visible: s.surface.Visible()}, nil
}

func (s *Service) togglePopup(context.Context, *message.Message) (any, error) {
	return message.Visible{Visible: s.surface.Toggle()}, nil
}

func (s *Service) popupBlur(context.Context, *message.Message) (any, error) {
	s.surface.Blur()
	return message.Visible{Visible: s.surface.Visible()}, nil
}

// ── settings ───────────────────────────────────────────────────────────────

func (s *Service) getSettings(context.Context, *message.Message) (any, error) {
	return s.settings.Get(), nil
}

func (s *Service) setSettings(ctx context.Context, req *message.Message) (any, error) {
	p, err := args[settings.Patch](req)
	if err != nil {
		return nil, err
	}
	return s.settings.Set(ctx, p)
}

// ── vault ──────────────────────────────────────────────────────────────────

func (s *Service) setVaultPin(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.PINArgs](req)
	if err != nil {
		return nil, err
	}
	err = s.vault.SetPIN(ctx, a.PIN)
	return message.Applied{Applied: err == nil || codeFor(err) == message.CodePersist}, err
}

func (s *Service) verifyVaultPin(_ context.Context, req *message.Message) (any, error) {
	a, err := args[message.PINArgs](req)
	if err != nil {
		return nil, err
	}
	return message.Valid{Valid: s.vault.Verify(a.PIN)}, nil
}

func (s *Service) hasVaultPin(context.Context, *message.Message) (any, error) {
	return message.HasPin{HasPin: s.vault.HasPIN(), Unlocked: s.vault.Unlocked()}, nil
}

func (s *Service) moveToVault(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.IDArgs](req)
	if err != nil {
		return nil, err
	}
	ok, err := s.vault.Add(ctx, a.ID)
	return message.Applied{Applied: ok}, err
}

func (s *Service) removeFromVault(ctx context.Context, req *message.Message) (any, error) {
	a, err := args[message.IDArgs](req)
	if err != nil {
		return nil, err
	}
	ok, err := s.vault.Remove(ctx, a.ID)
	return message.Applied{Applied: ok}, err
}

func (s *Service) getVaultItems(_ context.Context, req *message.Message) (any, error) {
	a, err := args[message.HistoryArgs](req)
	if err != nil {
		return nil, err
	}
	return s.vault.Items(history.Query{
		Search:   a.Search,
		Page:     a.Page,
		PageSize: a.PageSize,
	})
}

func (s *Service) lockVault(context.Context, *message.Message) (any, error) {
	s.vault.Lock()
	return message.Applied{Applied: true}, nil
}

// ── misc ───────────────────────────────────────────────────────────────────

func (s *Service) getImagePath(_ context.Context, req *message.Message) (any, error) {
	a, err := args[message.IDArgs](req)
	if err != nil {
		return nil, err
	}
	it, ok := s.store.Get(a.ID)
	if !ok || it.Kind != model.KindImage || it.ImagePath == "" {
		return message.Path{}, nil
	}
	if it.InVault && !s.vault.Unlocked() {
		return nil, pin.ErrLocked
	}
	return message.Path{Path: s.blobs.Resolve(it.ImagePath)}, nil
}

func (s *Service) getVersion(context.Context, *message.Message) (any, error) {
	return message.Version{Version: s.opts.Version}, nil
}

func (s *Service) status(ctx context.Context, _ *message.Message) (any, error) {
	return s.Status(ctx), nil
}

func (s *Service) watchUnsupported(context.Context, *message.Message) (any, error) {
	return nil, fmt.Errorf("%w: %s needs a dedicated connection", errBadRequest, message.OpWatch)
}
