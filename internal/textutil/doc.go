// Package textutil holds string helpers for turning disc metadata into
// filesystem names.
package textutil
