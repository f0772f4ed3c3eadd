package errors

import "errors"

var (
	// ErrNetwork marks a failed HTTP exchange: transport error or status >= 400
	ErrNetwork = errors.New("network error")
	// ErrParse marks malformed feed XML or image bytes
	ErrParse = errors.New("parse error")

	ErrEmptyContent   = errors.New("entry has no content after sanitizing")
	ErrNoExcerpt      = errors.New("entry has no lead text")
	ErrNoNewEntries   = errors.New("no entries past the watermark")
	ErrNoArticles     = errors.New("no entry produced an article")
	ErrNoMagazine     = errors.New("no feed produced a section")
	ErrRunInProgress  = errors.New("a publish run is already in progress")
	ErrInvalidPolicy  = errors.New("invalid retry policy")
	ErrMissingChatID  = errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	ErrSettingsFormat = errors.New("settings file has no feed_list")
)

// IsBenign reports whether err is an expected absence rather than a failure
func IsBenign(err error) bool {
	return errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrNoExcerpt) ||
		errors.Is(err, ErrNoNewEntries) ||
		errors.Is(err, ErrNoArticles) ||
		errors.Is(err, ErrNoMagazine)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
