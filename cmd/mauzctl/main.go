package main

const buildVersion = "0.1.0"

func main() {
	Execute(buildVersion)
}
