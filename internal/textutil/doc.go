// Package textutil provides text helpers shared across iconsort: deriving
// keyword hints from icon file names and turning provider ids into
// directory slugs.
//
// Keyword extraction folds accents, splits camelCase and separator runs, and
// drops size and variant noise such as "24px" or "outline" so that a name
// like "ArrowLeft_24px-outline.svg" yields ["arrow", "left"].
package textutil
