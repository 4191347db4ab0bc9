package assistanttest

import "fmt"

// UploadedFile is a file received on POST /files.
type UploadedFile struct {
	ID       string
	FileName string
	Purpose  string
	Content  []byte
}

// VectorStore is a vector store created on POST /vector_stores.
type VectorStore struct {
	ID      string
	Name    string
	FileIDs []string
}

// CreatedAssistant is an assistant created on POST /assistants.
type CreatedAssistant struct {
	ID           string
	Name         string
	Model        string
	Instructions string
	Tools        []string
	// VectorStoreIDs are the file_search tool resources.
	VectorStoreIDs []string
}

func (f *FakeAPI) Files() []UploadedFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]UploadedFile(nil), f.files...)
}

func (f *FakeAPI) VectorStores() []VectorStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]VectorStore(nil), f.vectorStores...)
}

func (f *FakeAPI) Assistants() []CreatedAssistant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CreatedAssistant(nil), f.assistants...)
}

func (f *FakeAPI) uploadFile(name, purpose string, content []byte) (UploadedFile, error) {
	if err := f.record("CreateFile"); err != nil {
		return UploadedFile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	file := UploadedFile{ID: fmt.Sprintf("file_%d", f.nextID), FileName: name, Purpose: purpose, Content: content}
	f.files = append(f.files, file)
	return file, nil
}

func (f *FakeAPI) createVectorStore(name string, fileIDs []string) (VectorStore, error) {
	if err := f.record("CreateVectorStore"); err != nil {
		return VectorStore{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	vs := VectorStore{ID: fmt.Sprintf("vs_%d", f.nextID), Name: name, FileIDs: fileIDs}
	f.vectorStores = append(f.vectorStores, vs)
	return vs, nil
}

func (f *FakeAPI) createAssistant(a CreatedAssistant) (CreatedAssistant, error) {
	if err := f.record("CreateAssistant"); err != nil {
		return CreatedAssistant{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = fmt.Sprintf("asst_%d", f.nextID)
	f.assistants = append(f.assistants, a)
	return a, nil
}
