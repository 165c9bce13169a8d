// Package metadata extracts generation-prompt text from PNG files.
//
// Image generators embed prompts in PNG text chunks (tEXt, zTXt, iTXt)
// under keywords like "parameters" (AUTOMATIC1111), "Comment" and
// "Description" (NovelAI), or "prompt" (ComfyUI). Extract walks the
// chunk stream directly instead of fully decoding the image, so pulling
// prompts out of thousands of files stays cheap.
//
// Extract is a pure best-effort function: it never returns an error,
// only an empty string when nothing textual can be recovered.
package metadata
