package main

import "github.com/anvil-os/anvil/kernel/kmain"

// multibootInfoPtr, kernelStartAddr and kernelEndAddr are patched in place
// by the rt0 assembly trampoline before it jumps to main: multibootInfoPtr
// with the physical address of the Multiboot info structure EBX pointed at
// on entry, kernelStartAddr/kernelEndAddr with the link script's _kernel_start
// and _kernel_end symbols so pmm.Init knows which frames the kernel image
// itself occupies.
var (
	multibootInfoPtr uintptr
	kernelStartAddr  uintptr
	kernelEndAddr    uintptr
)

// main makes a dummy call to the actual kernel main entrypoint function. It
// is intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code.
//
// Global variables are passed as arguments to Kmain to prevent the compiler
// from inlining the actual call and removing Kmain from the generated .o file.
func main() {
	kmain.Kmain(multibootInfoPtr, kernelStartAddr, kernelEndAddr)
}
