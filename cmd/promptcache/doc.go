// Command promptcache inspects and maintains the persistent prompt
// cache from the command line, outside the TUI.
package main
