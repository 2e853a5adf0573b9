package mr

// Exported aliases for testing internal helpers from the
// mr_test package.

// ChooseTitleForTest exposes chooseTitle.
var ChooseTitleForTest = chooseTitle

// BoolOrForTest exposes boolOr.
var BoolOrForTest = boolOr

// ConfirmForTest exposes confirm.
var ConfirmForTest = confirm

// FirstForTest exposes first.
var FirstForTest = first
