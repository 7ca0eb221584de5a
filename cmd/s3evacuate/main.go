// Command s3evacuate migrates S3 buckets to local storage and deletes
// them from S3 once every object is verified on disk.
package main

func main() {
	Execute()
}
