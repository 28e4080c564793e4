package message

// Operation names understood by the daemon.
const (
	OpGetTabs   = "getTabs"
	OpCreateTab = "createTab"
	OpRenameTab = "renameTab"
	OpDeleteTab = "deleteTab"

	OpGetHistory     = "getHistory"
	OpDeleteItem     = "deleteItem"
	OpDeleteMultiple = "deleteMultiple"
	OpPinItem        = "pinItem"
	OpMoveToTab      = "moveToTab"
	OpLabelItem      = "labelItem"
	OpClearHistory   = "clearHistory"
	OpGetStats       = "getStats"

	OpCopyToClipboard  = "copyToClipboard"
	OpBulkCopy         = "bulkCopy"
	OpPasteAndHide     = "pasteAndHide"
	OpBulkPasteAndHide = "bulkPasteAndHide"
	OpHidePopup        = "hidePopup"
	OpShowPopup        = "showPopup"
	OpTogglePopup      = "togglePopup"
	OpPopupBlur        = "popupBlur"

	OpGetSettings = "getSettings"
	OpSetSettings = "setSettings"

	OpSetVaultPin     = "setVaultPin"
	OpVerifyVaultPin  = "verifyVaultPin"
	OpHasVaultPin     = "hasVaultPin"
	OpMoveToVault     = "moveToVault"
	OpRemoveFromVault = "removeFromVault"
	OpGetVaultItems   = "getVaultItems"
	OpLockVault       = "lockVault"

	OpGetImagePath = "getImagePath"
	OpWatch        = "watch"
	OpGetVersion   = "getVersion"
	OpStatus       = "status"
)

// Request arguments.
type (
	IDArgs struct {
		ID string `json:"id"`
	}
	IDsArgs struct {
		IDs []string `json:"ids"`
	}
	TabArgs struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
		Icon string `json:"icon,omitempty"`
	}
	HistoryArgs struct {
		Search   string `json:"search,omitempty"`
		TabID    string `json:"tabId,omitempty"`
		Page     int    `json:"page,omitempty"`
		PageSize int    `json:"pageSize,omitempty"`
	}
	MoveArgs struct {
		ItemID string `json:"itemId"`
		TabID  string `json:"tabId,omitempty"`
	}
	LabelArgs struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	ClearArgs struct {
		TabID string `json:"tabId,omitempty"`
	}
	ContentArgs struct {
		Content   string `json:"content,omitempty"`
		ImagePath string `json:"imagePath,omitempty"`
	}
	ContentsArgs struct {
		Contents []string `json:"contents"`
	}
	PINArgs struct {
		PIN string `json:"pin"`
	}
	WatchArgs struct {
		Accept []string `json:"accept,omitempty"`
	}
)

// Response payloads.
type (
	Applied struct {
		Applied bool `json:"applied" yaml:"applied"`
	}
	Count struct {
		Count int `json:"count" yaml:"count"`
	}
	PinResult struct {
		Applied bool `json:"applied" yaml:"applied"`
		Pinned  bool `json:"pinned" yaml:"pinned"`
	}
	PasteResult struct {
		Injected bool `json:"injected" yaml:"injected"`
	}
	Visible struct {
		Visible bool `json:"visible" yaml:"visible"`
	}
	Valid struct {
		Valid bool `json:"valid" yaml:"valid"`
	}
	HasPin struct {
		HasPin   bool `json:"hasPin" yaml:"hasPin"`
		Unlocked bool `json:"unlocked" yaml:"unlocked"`
	}
	Path struct {
		Path string `json:"path" yaml:"path"`
	}
	Version struct {
		Version string `json:"version" yaml:"version"`
	}
)
