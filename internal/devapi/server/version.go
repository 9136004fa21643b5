package server

// Version is the server build.
const Version = "0.3.0"

// APIVersion is the version of the REST contract the server implements.
const APIVersion = "1.2.0"
