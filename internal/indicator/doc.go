// Package indicator provides the data model shared by every statmap component.
//
// This package contains type definitions and the value-type dispatch only.
// All other internal packages import indicator; indicator imports nothing
// internal.
//
// Key design constraints:
//   - ValueType is a closed set (integer, float). Every switch over it ends in
//     a default that returns *InvalidValueTypeError.
//   - An IndicatorValue has two value slots; only the slot matching the
//     indicator's ValueType is ever read or written.
//   - Indicator names are NFC-normalized at the storage and lookup boundary.
package indicator
