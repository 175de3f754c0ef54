// Command switchboard validates, serves and test-drives chatbot flows.
package main

func main() {
	Execute()
}
