package tui

// UI Layout Constants

const (
	// ModalWidthMarginNarrow is the horizontal margin around the progress modal (m.width - 10)
	ModalWidthMarginNarrow = 10
)
